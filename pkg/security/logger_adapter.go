// Package security holds the logger port implementation. Credential-looking
// fields are masked before they reach zap.
package security

import (
	"strings"

	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"go.uber.org/zap"
)

const redacted = "[REDACTED]"

// Field key fragments whose values are never logged
var sensitiveKeys = []string{"api_key", "apikey", "secret", "password", "token", "authorization"}

// ZapLoggerAdapter implements ports.Logger on top of zap
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

func NewZapLogger(logger *zap.Logger) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: logger}
}

func (z *ZapLoggerAdapter) Info(msg string, fields ...ports.Field) {
	z.logger.Info(msg, convertFields(fields)...)
}

func (z *ZapLoggerAdapter) Error(msg string, fields ...ports.Field) {
	z.logger.Error(msg, convertFields(fields)...)
}

func (z *ZapLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	z.logger.Warn(msg, convertFields(fields)...)
}

func (z *ZapLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	z.logger.Debug(msg, convertFields(fields)...)
}

// With returns an adapter that adds fields to every entry
func (z *ZapLoggerAdapter) With(fields ...ports.Field) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: z.logger.With(convertFields(fields)...)}
}

func convertFields(fields []ports.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		if isSensitive(f.Key) {
			zapFields[i] = zap.String(f.Key, redacted)
			continue
		}
		switch v := f.Value.(type) {
		case error:
			zapFields[i] = zap.NamedError(f.Key, v)
		default:
			zapFields[i] = zap.Any(f.Key, v)
		}
	}
	return zapFields
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

package security

import (
	"errors"
	"testing"
	"time"

	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter_ConvertsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).With(ports.String("component", "reconciliation"))

	logger.Warn("Unable to refresh transaction",
		ports.String("gateway_id", "pi_123"),
		ports.Duration("elapsed", 2*time.Second),
		ports.Err(errors.New("read timeout")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "Unable to refresh transaction", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "reconciliation", fields["component"])
	assert.Equal(t, "pi_123", fields["gateway_id"])
	assert.Equal(t, 2*time.Second, fields["elapsed"])
	assert.Equal(t, "read timeout", fields["error"])
}

func TestZapLoggerAdapter_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	levels := make([]zapcore.Level, 0, 4)
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}, levels)
}

func TestZapLoggerAdapter_RedactsCredentials(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Info("Loaded gateway credentials",
		ports.String("gateway_api_key", "sk_live_abc"),
		ports.String("X-Killbill-ApiSecret", "lazar"),
		ports.String("secret_path", "gateway/api-key"),
		ports.String("account_id", "acct-1"),
	)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redacted, fields["gateway_api_key"])
	assert.Equal(t, redacted, fields["X-Killbill-ApiSecret"])
	assert.Equal(t, redacted, fields["secret_path"])
	assert.Equal(t, "acct-1", fields["account_id"])
}

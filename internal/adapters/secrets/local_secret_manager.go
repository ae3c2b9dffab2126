package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"go.uber.org/zap"
)

// LocalSource reads secrets from files under a base directory.
// WARNING: development only.
type LocalSource struct {
	basePath string
	logger   *zap.Logger
}

var _ ports.SecretSource = (*LocalSource)(nil)

func NewLocalSource(basePath string, logger *zap.Logger) *LocalSource {
	return &LocalSource{basePath: basePath, logger: logger}
}

// GetSecret accepts a plain text file or JSON of the form {"value": "..."}
func (s *LocalSource) GetSecret(_ context.Context, secretPath string) (*ports.Secret, error) {
	clean := filepath.Clean("/" + secretPath)
	data, err := os.ReadFile(filepath.Join(s.basePath, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secret not found: %s", secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	s.logger.Debug("Read secret from filesystem", zap.String("path", secretPath))

	var doc struct {
		Value   string `json:"value"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Value != "" {
		return &ports.Secret{Value: doc.Value, Version: doc.Version}, nil
	}
	return &ports.Secret{Value: strings.TrimSpace(string(data))}, nil
}

// EnvSource treats the path as an environment variable name
type EnvSource struct{}

var _ ports.SecretSource = EnvSource{}

func (EnvSource) GetSecret(_ context.Context, name string) (*ports.Secret, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return nil, fmt.Errorf("secret not found: environment variable %s is not set", name)
	}
	return &ports.Secret{Value: value}, nil
}

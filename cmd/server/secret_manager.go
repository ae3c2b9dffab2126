package main

import (
	"context"
	"fmt"

	"github.com/kevin07696/gateway-reconciler/internal/adapters/secrets"
	"github.com/kevin07696/gateway-reconciler/internal/config"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"go.uber.org/zap"
)

// initSecretSource picks the backing store for the gateway API key:
//   - env: GATEWAY_API_KEY only, no store
//   - local: one file per secret under SECRET_LOCAL_PATH
//   - aws: AWS Secrets Manager in AWS_REGION
//   - vault: HashiCorp Vault KV v2 at VAULT_ADDR
//
// Stores are wrapped in a cache for SECRET_CACHE_TTL.
func initSecretSource(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretSource, error) {
	var (
		source ports.SecretSource
		err    error
	)

	switch cfg.Manager {
	case "env":
		return nil, nil
	case "local":
		logger.Warn("Using local file secret source - NOT for production use!",
			zap.String("path", cfg.LocalPath),
		)
		source = secrets.NewLocalSource(cfg.LocalPath, logger)
	case "aws":
		source, err = secrets.NewAWSSource(ctx, secrets.AWSConfig{Region: cfg.AWSRegion}, logger)
	case "vault":
		source, err = secrets.NewVaultSource(ctx, secrets.DefaultVaultConfig(cfg.VaultAddr, cfg.VaultToken), logger)
	default:
		return nil, fmt.Errorf("unsupported secret manager %q", cfg.Manager)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s secret source: %w", cfg.Manager, err)
	}

	logger.Info("Secret source initialized",
		zap.String("secret_manager", cfg.Manager),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)
	return secrets.NewCachedSource(source, cfg.CacheTTL, logger), nil
}

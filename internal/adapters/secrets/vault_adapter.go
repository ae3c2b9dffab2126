package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"go.uber.org/zap"
)

// VaultConfig configures the HashiCorp Vault source
type VaultConfig struct {
	Address string

	// "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string

	Namespace string

	// KV v2 mount (default "secret")
	MountPath string
}

// DefaultVaultConfig returns token auth against the "secret" KV v2 mount
func DefaultVaultConfig(address, token string) *VaultConfig {
	return &VaultConfig{
		Address:    address,
		AuthMethod: "token",
		Token:      token,
		MountPath:  "secret",
	}
}

// VaultSource reads secrets from a KV v2 engine. The value is stored under
// the "value" key.
type VaultSource struct {
	client *vault.Client
	mount  string
	logger *zap.Logger
}

var _ ports.SecretSource = (*VaultSource)(nil)

// NewVaultSource creates and authenticates a Vault client
func NewVaultSource(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (*VaultSource, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}
	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}

	logger.Info("Vault source initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", mount),
	)
	return &VaultSource{client: client, mount: mount, logger: logger}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "", "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil
	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil
	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

// GetSecret reads <mount>/data/<path>
func (s *VaultSource) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, fmt.Sprintf("%s/data/%s", s.mount, path))
	if err != nil {
		s.logger.Error("Failed to retrieve secret from Vault", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("secret not found: %s", path)
	}
	return parseKVv2(path, secret.Data)
}

func parseKVv2(path string, raw map[string]interface{}) (*ports.Secret, error) {
	data, ok := raw["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format from Vault at %s", path)
	}
	value, _ := data["value"].(string)
	if value == "" {
		return nil, fmt.Errorf("secret %s has no value", path)
	}

	result := &ports.Secret{Value: value, Metadata: map[string]string{}}
	if metadata, ok := raw["metadata"].(map[string]interface{}); ok {
		switch v := metadata["version"].(type) {
		case json.Number:
			result.Version = v.String()
		case float64:
			result.Version = fmt.Sprintf("%.0f", v)
		}
		if created, ok := metadata["created_time"].(string); ok {
			result.Metadata["created_time"] = created
		}
	}
	return result, nil
}

// Package secrets provides secret sources for the gateway API key
package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CachedSource serves secrets from memory for ttl before asking the backing
// source again. Failures are not cached.
type CachedSource struct {
	source ports.SecretSource
	cache  *cache.Cache
	logger *zap.Logger
}

var _ ports.SecretSource = (*CachedSource)(nil)

func NewCachedSource(source ports.SecretSource, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (c *CachedSource) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached, ok := c.cache.Get(path); ok {
		return cached.(*ports.Secret), nil
	}
	secret, err := c.source.GetSecret(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(path, secret)
	c.logger.Debug("Secret cached", zap.String("path", path))
	return secret, nil
}

// Invalidate drops the cached value
func (c *CachedSource) Invalidate(path string) {
	c.cache.Delete(path)
}

// GatewayKey resolves the gateway API key. A literal key wins over the
// secret path.
type GatewayKey struct {
	Literal string
	Path    string
	Source  ports.SecretSource
}

func (k GatewayKey) APIKey(ctx context.Context) (string, error) {
	if k.Literal != "" {
		return k.Literal, nil
	}
	if k.Path == "" || k.Source == nil {
		return "", errors.New("no gateway api key configured")
	}
	secret, err := k.Source.GetSecret(ctx, k.Path)
	if err != nil {
		return "", fmt.Errorf("gateway api key: %w", err)
	}
	return secret.Value, nil
}

// InvalidateKey drops the cached key so the next request reads the secret
// source again. It does nothing for a literal key.
func (k GatewayKey) InvalidateKey() {
	if k.Literal != "" {
		return
	}
	if cached, ok := k.Source.(interface{ Invalidate(path string) }); ok {
		cached.Invalidate(k.Path)
	}
}

// Package stripe implements ports.GatewayAdapter against the Stripe REST API
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	pkghttp "github.com/kevin07696/gateway-reconciler/pkg/http"
	"github.com/kevin07696/gateway-reconciler/pkg/observability"
	"github.com/kevin07696/gateway-reconciler/pkg/resilience"
	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// KeyProvider resolves the secret API key for each request, so a rotated key
// is picked up without a restart
type KeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// KeyInvalidator is implemented by providers that cache the key. The adapter
// calls it when the gateway rejects the key.
type KeyInvalidator interface {
	InvalidateKey()
}

// StaticKey is a KeyProvider for a key known at startup
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	if k == "" {
		return "", errors.New("gateway api key is empty")
	}
	return string(k), nil
}

// Config contains configuration for the Stripe adapter
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	ProxyURL       string

	// Outbound pacing; zero disables the limiter
	RateLimitRPS float64
	// Extra attempts for idempotent reads. Money-moving POSTs are never retried here.
	MaxReadRetries int

	CircuitBreaker CircuitBreakerConfig
}

// DefaultConfig returns default configuration for the Stripe adapter
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.stripe.com",
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    60 * time.Second,
		RateLimitRPS:   25,
		MaxReadRetries: 2,
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// Adapter talks to the gateway over form-encoded HTTPS
type Adapter struct {
	config     *Config
	httpClient ports.HTTPClient
	keys       KeyProvider
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	backoff    resilience.BackoffStrategy
	logger     *zap.Logger
}

var _ ports.GatewayAdapter = (*Adapter)(nil)

// NewAdapter creates the adapter with an HTTP client honoring the connect and
// read timeouts and the proxy setting
func NewAdapter(cfg *Config, keys KeyProvider, logger *zap.Logger) (*Adapter, error) {
	client, err := pkghttp.NewHTTPClient(
		pkghttp.GatewayClientConfig(cfg.ConnectTimeout, cfg.ReadTimeout, cfg.ProxyURL),
		cfg.ConnectTimeout+cfg.ReadTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway http client: %w", err)
	}
	return NewAdapterWithClient(cfg, keys, client, logger), nil
}

// NewAdapterWithClient creates the adapter over an injected HTTP client
func NewAdapterWithClient(cfg *Config, keys KeyProvider, client ports.HTTPClient, logger *zap.Logger) *Adapter {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
		burst = int(cfg.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
	}

	breakerCfg := cfg.CircuitBreaker
	if breakerCfg.MaxFailures == 0 {
		breakerCfg = DefaultCircuitBreakerConfig()
	}
	userHook := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(from, to CircuitState) {
		logger.Warn("Gateway circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		observability.SetGatewayCircuitState(int(to))
		if userHook != nil {
			userHook(from, to)
		}
	}

	return &Adapter{
		config:     cfg,
		httpClient: client,
		keys:       keys,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    NewCircuitBreaker(breakerCfg, timeutil.SystemClock{}),
		backoff:    resilience.GatewayReadBackoff(),
		logger:     logger,
	}
}

// CircuitState exposes the breaker state for readiness reporting
func (a *Adapter) CircuitState() CircuitState {
	return a.breaker.State()
}

type request struct {
	op             string // metric and log label
	method         string
	path           string
	form           url.Values
	idempotencyKey string
	objectID       string
}

// call runs one gateway request through the limiter and the circuit breaker.
// GETs are retried on transport failures; everything else is attempted once.
func (a *Adapter) call(ctx context.Context, req request, out interface{}) error {
	start := time.Now()
	err := a.callWithRetry(ctx, req, out)

	outcome := domain.NewGatewayResult(nil, err).Kind.String()
	observability.RecordGatewayRequest(req.op, outcome, time.Since(start).Seconds())

	fields := []zap.Field{
		zap.String("operation", req.op),
		zap.String("gateway_id", req.objectID),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		a.logger.Warn("Gateway request failed", append(fields, zap.Error(err))...)
		return err
	}
	a.logger.Info("Gateway request completed", fields...)
	return nil
}

func (a *Adapter) callWithRetry(ctx context.Context, req request, out interface{}) error {
	attempts := 1
	if req.method == http.MethodGet && a.config.MaxReadRetries > 0 {
		attempts += a.config.MaxReadRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := a.backoff.NextDelay(attempt - 1)
			a.logger.Info("Retrying gateway read",
				zap.String("operation", req.op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff_delay", delay),
			)
			select {
			case <-ctx.Done():
				return classifyTransport(ctx.Err())
			case <-time.After(delay):
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			// Never sent
			return &domain.TransportError{Kind: domain.TransportConnect, Err: fmt.Errorf("rate limiter: %w", err)}
		}
		if err := a.breaker.Allow(); err != nil {
			return classifyTransport(err)
		}

		lastErr = a.roundTrip(ctx, req, out)
		a.breaker.Record(isOutage(lastErr))

		var transportErr *domain.TransportError
		if lastErr == nil || !errors.As(lastErr, &transportErr) {
			return lastErr
		}
	}
	return lastErr
}

func (a *Adapter) roundTrip(ctx context.Context, req request, out interface{}) error {
	key, err := a.keys.APIKey(ctx)
	if err != nil {
		return fmt.Errorf("resolve gateway api key: %w", err)
	}

	endpoint := strings.TrimRight(a.config.BaseURL, "/") + req.path
	var body io.Reader
	encoded := req.form.Encode()
	if req.method == http.MethodGet || req.method == http.MethodDelete {
		if encoded != "" {
			endpoint += "?" + encoded
		}
	} else {
		body = strings.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Kind: domain.TransportAmbiguous, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if invalidator, ok := a.keys.(KeyInvalidator); ok {
			a.logger.Warn("Gateway rejected the api key, dropping cached key", zap.String("operation", req.op))
			invalidator.InvalidateKey()
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeGatewayError(resp, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.TransportError{Kind: domain.TransportAmbiguous, Err: fmt.Errorf("malformed gateway response: %w", err)}
	}
	return nil
}

func objectPath(format string, ids ...string) string {
	escaped := make([]interface{}, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, escaped...)
}

// Package killbill implements ports.BillingHost against the Kill Bill REST API
package killbill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	pkghttp "github.com/kevin07696/gateway-reconciler/pkg/http"
	"github.com/kevin07696/gateway-reconciler/pkg/resilience"
	"github.com/patrickmn/go-cache"
)

// PluginName is the payment plugin the registered payment methods belong to
const PluginName = "killbill-stripe"

// Config holds the billing host endpoint and credentials
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	User      string
	Password  string
	CreatedBy string

	// How long custom field lookups are served from memory
	CustomFieldTTL time.Duration
	RequestTimeout time.Duration
	MaxReadRetries int
}

// DefaultConfig returns a config pointing at a local Kill Bill
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8080",
		User:           "admin",
		CreatedBy:      "gateway-reconciler",
		CustomFieldTTL: 5 * time.Minute,
		RequestTimeout: 10 * time.Second,
		MaxReadRetries: 2,
	}
}

// Client talks to Kill Bill. The tenant is selected by the API key pair, so
// tenantID only scopes the local cache.
type Client struct {
	config     *Config
	httpClient ports.HTTPClient
	backoff    resilience.BackoffStrategy
	timeouts   *resilience.TimeoutConfig
	fields     *cache.Cache
	logger     ports.Logger
}

var _ ports.BillingHost = (*Client)(nil)

// NewClient builds a client with the shared internal-API transport settings
func NewClient(cfg *Config, logger ports.Logger) (*Client, error) {
	httpClient, err := pkghttp.NewHTTPClient(pkghttp.DefaultClientConfig(), cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build billing host http client: %w", err)
	}
	return NewClientWithHTTP(cfg, httpClient, logger), nil
}

// NewClientWithHTTP builds a client over an injected HTTP client
func NewClientWithHTTP(cfg *Config, httpClient ports.HTTPClient, logger ports.Logger) *Client {
	ttl := cfg.CustomFieldTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	timeouts := resilience.DefaultTimeoutConfig()
	if cfg.RequestTimeout > 0 {
		timeouts.BillingHost = cfg.RequestTimeout
	}
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		backoff:    resilience.BillingHostBackoff(),
		timeouts:   timeouts,
		fields:     cache.New(ttl, 2*ttl),
		logger:     logger,
	}
}

type accountJSON struct {
	AccountID   string `json:"accountId"`
	ExternalKey string `json:"externalKey"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Currency    string `json:"currency"`
}

type customFieldJSON struct {
	CustomFieldID string `json:"customFieldId,omitempty"`
	ObjectID      string `json:"objectId,omitempty"`
	ObjectType    string `json:"objectType,omitempty"`
	Name          string `json:"name"`
	Value         string `json:"value"`
}

type pluginPropertyJSON struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	IsUpdatable bool   `json:"isUpdatable"`
}

type paymentMethodJSON struct {
	AccountID   string `json:"accountId"`
	ExternalKey string `json:"externalKey"`
	PluginName  string `json:"pluginName"`
	IsDefault   bool   `json:"isDefault"`
	PluginInfo  struct {
		ExternalPaymentMethodID string               `json:"externalPaymentMethodId"`
		Properties              []pluginPropertyJSON `json:"properties,omitempty"`
	} `json:"pluginInfo"`
}

// GetAccount fetches the account by id
func (c *Client) GetAccount(ctx context.Context, accountID, tenantID uuid.UUID) (*ports.Account, error) {
	var wire accountJSON
	if _, err := c.do(ctx, http.MethodGet, "/1.0/kb/accounts/"+accountID.String(), nil, nil, &wire); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(wire.AccountID)
	if err != nil {
		id = accountID
	}
	return &ports.Account{
		ID:          id,
		ExternalKey: wire.ExternalKey,
		Name:        wire.Name,
		Email:       wire.Email,
		Currency:    wire.Currency,
	}, nil
}

// GetCustomField returns the named account field, or "" when it is not set.
// Only set fields are cached, so a field added elsewhere shows up on the
// next lookup.
func (c *Client) GetCustomField(ctx context.Context, accountID, tenantID uuid.UUID, name string) (string, error) {
	if cached, ok := c.fields.Get(cacheKey(accountID, tenantID, name)); ok {
		return cached.(string), nil
	}

	var wire []customFieldJSON
	if _, err := c.do(ctx, http.MethodGet, "/1.0/kb/accounts/"+accountID.String()+"/customFields", nil, nil, &wire); err != nil {
		return "", err
	}

	var value string
	for _, f := range wire {
		if f.Value == "" {
			continue
		}
		c.fields.SetDefault(cacheKey(accountID, tenantID, f.Name), f.Value)
		if f.Name == name {
			value = f.Value
		}
	}
	return value, nil
}

// AddCustomField attaches a field to the account
func (c *Client) AddCustomField(ctx context.Context, accountID, tenantID uuid.UUID, name, value string) error {
	body := []customFieldJSON{{Name: name, Value: value}}
	if _, err := c.do(ctx, http.MethodPost, "/1.0/kb/accounts/"+accountID.String()+"/customFields", nil, body, nil); err != nil {
		return err
	}
	c.fields.Delete(cacheKey(accountID, tenantID, name))
	return nil
}

// RegisterPaymentMethod creates a Kill Bill payment method pointing at the
// gateway instrument and returns the id from the Location header
func (c *Client) RegisterPaymentMethod(ctx context.Context, accountID, tenantID uuid.UUID, externalID string, isDefault bool) (uuid.UUID, error) {
	body := paymentMethodJSON{
		AccountID:   accountID.String(),
		ExternalKey: externalID,
		PluginName:  PluginName,
		IsDefault:   isDefault,
	}
	body.PluginInfo.ExternalPaymentMethodID = externalID

	query := url.Values{}
	query.Set("isDefault", fmt.Sprintf("%t", isDefault))
	// The plugin reads this property and skips its own gateway call
	query.Add("pluginProperty", "skip_gw=true")

	resp, err := c.do(ctx, http.MethodPost, "/1.0/kb/accounts/"+accountID.String()+"/paymentMethods", query, body, nil)
	if err != nil {
		return uuid.Nil, err
	}

	location := resp.Header.Get("Location")
	id, err := uuid.Parse(path.Base(strings.TrimRight(location, "/")))
	if err != nil {
		return uuid.Nil, domain.WrapError(domain.ErrorCodeInternalError,
			fmt.Sprintf("billing host returned no payment method id (Location %q)", location), err)
	}

	c.logger.Info("Registered payment method with billing host",
		ports.String("account_id", accountID.String()),
		ports.String("tenant_id", tenantID.String()),
		ports.String("payment_method_id", id.String()),
		ports.String("external_id", externalID),
	)
	return id, nil
}

// DeactivatePaymentMethod removes the payment method on the billing side
func (c *Client) DeactivatePaymentMethod(ctx context.Context, accountID, tenantID, paymentMethodID uuid.UUID) error {
	query := url.Values{}
	query.Set("forceDefaultPmDeletion", "true")
	query.Add("pluginProperty", "skip_gw=true")

	if _, err := c.do(ctx, http.MethodDelete, "/1.0/kb/paymentMethods/"+paymentMethodID.String(), query, nil, nil); err != nil {
		return err
	}

	c.logger.Info("Deactivated payment method on billing host",
		ports.String("account_id", accountID.String()),
		ports.String("tenant_id", tenantID.String()),
		ports.String("payment_method_id", paymentMethodID.String()),
	)
	return nil
}

// do sends one request. GETs are retried on transport errors and 5xx.
func (c *Client) do(ctx context.Context, method, p string, query url.Values, body, out interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode billing host request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet && c.config.MaxReadRetries > 0 {
		attempts += c.config.MaxReadRetries
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff.NextDelay(attempt - 1)
			c.logger.Warn("Retrying billing host request",
				ports.String("path", p),
				ports.Int("attempt", attempt),
				ports.Duration("backoff_delay", delay),
				ports.Err(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var retryable bool
		attemptCtx, cancel := c.timeouts.BillingHostContext(ctx)
		resp, retryable, lastErr = c.roundTrip(attemptCtx, method, p, query, payload, out)
		cancel()
		if lastErr == nil || !retryable {
			break
		}
	}
	return resp, lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, p string, query url.Values, payload []byte, out interface{}) (*http.Response, bool, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + p
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.config.User, c.config.Password)
	req.Header.Set("X-Killbill-ApiKey", c.config.APIKey)
	req.Header.Set("X-Killbill-ApiSecret", c.config.APISecret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Killbill-CreatedBy", c.config.CreatedBy)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, domain.WrapError(domain.ErrorCodeInternalError, "billing host unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, domain.WrapError(domain.ErrorCodeInternalError, "failed to read billing host response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, domain.NewDomainError(domain.ErrorCodeNotFound,
			fmt.Sprintf("billing host object not found: %s", p))
	case resp.StatusCode >= 500:
		return nil, true, billingHostError(resp.StatusCode, raw)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, false, billingHostError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, false, domain.WrapError(domain.ErrorCodeInternalError, "malformed billing host response", err)
		}
	}
	return resp, false, nil
}

func billingHostError(status int, raw []byte) error {
	var envelope struct {
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
		message = envelope.Message
	}
	return domain.WrapError(domain.ErrorCodeInternalError,
		fmt.Sprintf("billing host returned %d", status),
		errors.New(message),
	).WithDetail("status_code", status)
}

func cacheKey(accountID, tenantID uuid.UUID, name string) string {
	return tenantID.String() + "/" + accountID.String() + "/" + name
}

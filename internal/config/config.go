package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kevin07696/gateway-reconciler/internal/services/expiration"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Gateway     GatewayConfig
	Expiration  expiration.Settings
	Charge      ChargeConfig
	BillingHost BillingHostConfig
	Secrets     SecretsConfig
	Logger      LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	MetricsPort int
	Environment string

	// Inbound requests per second per tenant; zero disables the limiter
	RateLimitRPS   float64
	RateLimitBurst int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxConns     int32
	MinConns     int32
	QueryTimeout time.Duration
	AutoMigrate  bool
}

// GatewayConfig holds payment gateway connectivity
type GatewayConfig struct {
	BaseURL              string
	APIKey               string // takes precedence over APIKeySecretPath
	APIKeySecretPath     string
	ConnectionTimeout    time.Duration
	ReadTimeout          time.Duration
	ProxyURL             string
	RateLimitRPS         float64
	MaxReadRetries       int
	CancelOn3DSAuthError bool
}

// ChargeConfig holds the descriptors sent with every initial charge
type ChargeConfig struct {
	Description         string
	StatementDescriptor string
}

// BillingHostConfig holds the billing platform API credentials
type BillingHostConfig struct {
	URL            string
	APIKey         string
	APISecret      string
	User           string
	Password       string
	CustomerIDTTL  time.Duration
	RequestTimeout time.Duration
}

// SecretsConfig selects where the gateway API key is read from
type SecretsConfig struct {
	Manager    string // env, local, aws, vault
	LocalPath  string
	AWSRegion  string
	VaultAddr  string
	VaultToken string
	CacheTTL   time.Duration
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

const defaultChargeDescription = "Kill Bill charge"

// Load reads an optional .env file, then the environment
func Load() (*Config, error) {
	if err := loadEnvFile(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}
	return LoadFromEnv()
}

// loadEnvFile preloads keys missing from the process environment.
// A missing file is not an error.
func loadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, value)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")

	settings, err := expiration.ParseSettings(
		getEnv("PENDING_PAYMENT_EXPIRATION_PERIOD", expiration.DefaultPendingPeriod),
		getEnv("PENDING_3DS_PAYMENT_EXPIRATION_PERIOD", expiration.DefaultPending3DSPeriod),
		getEnv("PENDING_HPP_PAYMENT_WITHOUT_COMPLETION_EXPIRATION_PERIOD", expiration.DefaultPendingHPPPeriod),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("PORT", 8080),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			Environment:    environment,
			RateLimitRPS:   getEnvAsFloat("SERVER_RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
		},
		Database: databaseFromEnv(),
		Gateway: GatewayConfig{
			BaseURL:              getEnv("GATEWAY_BASE_URL", "https://api.stripe.com"),
			APIKey:               getEnv("GATEWAY_API_KEY", ""),
			APIKeySecretPath:     getEnv("GATEWAY_API_KEY_SECRET_PATH", ""),
			ConnectionTimeout:    time.Duration(getEnvAsInt("GATEWAY_CONNECTION_TIMEOUT_MS", 30000)) * time.Millisecond,
			ReadTimeout:          time.Duration(getEnvAsInt("GATEWAY_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
			ProxyURL:             getEnv("GATEWAY_PROXY_URL", ""),
			RateLimitRPS:         getEnvAsFloat("GATEWAY_RATE_LIMIT_RPS", 25),
			MaxReadRetries:       getEnvAsInt("GATEWAY_MAX_READ_RETRIES", 2),
			CancelOn3DSAuthError: getEnvAsBool("CANCEL_ON_3DS_AUTHORIZATION_FAILURE", false),
		},
		Expiration: settings,
		Charge: ChargeConfig{
			Description:         getEnv("CHARGE_DESCRIPTION", defaultChargeDescription),
			StatementDescriptor: getEnv("CHARGE_STATEMENT_DESCRIPTOR", defaultChargeDescription),
		},
		BillingHost: BillingHostConfig{
			URL:            getEnv("BILLING_HOST_URL", "http://localhost:8080"),
			APIKey:         getEnv("BILLING_HOST_API_KEY", ""),
			APISecret:      getEnv("BILLING_HOST_API_SECRET", ""),
			User:           getEnv("BILLING_HOST_USER", "admin"),
			Password:       getEnv("BILLING_HOST_PASSWORD", ""),
			CustomerIDTTL:  getEnvAsDuration("CUSTOMER_ID_CACHE_TTL", 5*time.Minute),
			RequestTimeout: getEnvAsDuration("BILLING_HOST_TIMEOUT", 10*time.Second),
		},
		Secrets: SecretsConfig{
			Manager:    strings.ToLower(getEnv("SECRET_MANAGER", "env")),
			LocalPath:  getEnv("SECRET_LOCAL_PATH", "./secrets"),
			AWSRegion:  getEnv("AWS_REGION", "us-east-1"),
			VaultAddr:  getEnv("VAULT_ADDR", "http://localhost:8200"),
			VaultToken: getEnv("VAULT_TOKEN", ""),
			CacheTTL:   getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: environment == "development",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools such as the
// migration CLI that never reach the gateway
func LoadDatabase() (DatabaseConfig, error) {
	if err := loadEnvFile(getEnv("ENV_FILE", ".env")); err != nil {
		return DatabaseConfig{}, err
	}
	return databaseFromEnv(), nil
}

func databaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         getEnvAsInt("DB_PORT", 5432),
		User:         getEnv("DB_USER", "postgres"),
		Password:     getEnv("DB_PASSWORD", ""),
		Database:     getEnv("DB_NAME", "gateway_reconciler"),
		SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		MaxConns:     int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:     int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		QueryTimeout: getEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
	}
}

// Validate checks settings that would only fail at the first gateway call
func (c *Config) Validate() error {
	if c.Gateway.APIKey == "" && c.Gateway.APIKeySecretPath == "" {
		return fmt.Errorf("GATEWAY_API_KEY or GATEWAY_API_KEY_SECRET_PATH is required")
	}
	if c.Gateway.ConnectionTimeout <= 0 || c.Gateway.ReadTimeout <= 0 {
		return fmt.Errorf("gateway timeouts must be positive")
	}
	if c.Gateway.MaxReadRetries < 0 {
		return fmt.Errorf("GATEWAY_MAX_READ_RETRIES must not be negative")
	}
	if c.BillingHost.URL == "" {
		return fmt.Errorf("BILLING_HOST_URL is required")
	}
	switch c.Secrets.Manager {
	case "env", "local", "aws", "vault":
	default:
		return fmt.Errorf("unsupported SECRET_MANAGER %q", c.Secrets.Manager)
	}
	if c.Secrets.Manager == "vault" && c.Secrets.VaultToken == "" {
		return fmt.Errorf("VAULT_TOKEN is required when SECRET_MANAGER=vault")
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MigrationURL returns the postgres URL understood by the migration driver
func (c *DatabaseConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

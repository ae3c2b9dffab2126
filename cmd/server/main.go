package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/gateway-reconciler/internal/adapters/database"
	"github.com/kevin07696/gateway-reconciler/internal/adapters/killbill"
	"github.com/kevin07696/gateway-reconciler/internal/adapters/postgres"
	"github.com/kevin07696/gateway-reconciler/internal/adapters/secrets"
	"github.com/kevin07696/gateway-reconciler/internal/adapters/stripe"
	"github.com/kevin07696/gateway-reconciler/internal/config"
	"github.com/kevin07696/gateway-reconciler/internal/db/migrations"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/kevin07696/gateway-reconciler/internal/handlers"
	paymentHandler "github.com/kevin07696/gateway-reconciler/internal/handlers/payment"
	paymentmethodHandler "github.com/kevin07696/gateway-reconciler/internal/handlers/payment_method"
	"github.com/kevin07696/gateway-reconciler/internal/middleware"
	"github.com/kevin07696/gateway-reconciler/internal/services/expiration"
	paymentService "github.com/kevin07696/gateway-reconciler/internal/services/payment"
	paymentmethodService "github.com/kevin07696/gateway-reconciler/internal/services/payment_method"
	"github.com/kevin07696/gateway-reconciler/internal/services/reconciliation"
	"github.com/kevin07696/gateway-reconciler/pkg/observability"
	"github.com/kevin07696/gateway-reconciler/pkg/resilience"
	"github.com/kevin07696/gateway-reconciler/pkg/security"
	"github.com/kevin07696/gateway-reconciler/pkg/shutdown"
	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; the zap default is enough to report a bad config
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting gateway reconciler",
		zap.String("environment", cfg.Server.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(cfg.Database.MigrationURL(), logger); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbCfg.QueryTimeout = cfg.Database.QueryTimeout
	db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	db.StartPoolMonitoring(ctx, 30*time.Second)

	secretSource, err := initSecretSource(ctx, cfg.Secrets, logger)
	if err != nil {
		logger.Fatal("Failed to initialize secret source", zap.Error(err))
	}

	timeouts := resilience.DefaultTimeoutConfig()
	mux, err := initRoutes(cfg, db, secretSource, timeouts, logger)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	inflight := shutdown.NewInFlightTracker("http", logger)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.Recover(logger),
			middleware.RequestLogger(logger),
			middleware.NewSecurityHeaders(cfg.Server.Environment == "development").Middleware,
			inflight.Middleware,
			middleware.Deadline(timeouts),
			middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, handlers.TenantHeader).Middleware,
		),
		ReadHeaderTimeout: 10 * time.Second,
		// Longer than a gateway connect plus read
		WriteTimeout: cfg.Gateway.ConnectionTimeout + cfg.Gateway.ReadTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(
		strconv.Itoa(cfg.Server.MetricsPort),
		observability.NewHealthChecker(db),
		inflight.Ready,
		logger,
	)

	go func() {
		logger.Info("HTTP server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Stopped in reverse order: in-flight payments drain before the pool closes
	manager := shutdown.NewManager(logger, 30*time.Second)
	manager.RegisterNoErr("database", db.Close)
	manager.RegisterNoErr("pool_monitor", cancel)
	manager.Register("metrics", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})
	manager.RegisterHTTPServer("http", server)
	manager.Register("inflight", inflight.Shutdown)
	manager.WaitForShutdown()
}

// initRoutes wires adapters into services and mounts the handlers
func initRoutes(
	cfg *config.Config,
	db *database.PostgreSQLAdapter,
	secretSource ports.SecretSource,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
) (*http.ServeMux, error) {
	portLogger := security.NewZapLogger(logger)
	clock := timeutil.SystemClock{}

	executor := postgres.NewDBExecutor(db.Pool())
	ledger := postgres.NewTransactionRepository(executor)
	mirror := postgres.NewPaymentMethodRepository(executor)
	hppStore := postgres.NewHppRequestRepository(executor)

	gatewayCfg := stripe.DefaultConfig()
	gatewayCfg.BaseURL = cfg.Gateway.BaseURL
	gatewayCfg.ConnectTimeout = cfg.Gateway.ConnectionTimeout
	gatewayCfg.ReadTimeout = cfg.Gateway.ReadTimeout
	gatewayCfg.ProxyURL = cfg.Gateway.ProxyURL
	gatewayCfg.RateLimitRPS = cfg.Gateway.RateLimitRPS
	gatewayCfg.MaxReadRetries = cfg.Gateway.MaxReadRetries
	gateway, err := stripe.NewAdapter(gatewayCfg, secrets.GatewayKey{
		Literal: cfg.Gateway.APIKey,
		Path:    cfg.Gateway.APIKeySecretPath,
		Source:  secretSource,
	}, logger)
	if err != nil {
		return nil, err
	}

	hostCfg := killbill.DefaultConfig()
	hostCfg.BaseURL = cfg.BillingHost.URL
	hostCfg.APIKey = cfg.BillingHost.APIKey
	hostCfg.APISecret = cfg.BillingHost.APISecret
	hostCfg.User = cfg.BillingHost.User
	hostCfg.Password = cfg.BillingHost.Password
	hostCfg.CustomFieldTTL = cfg.BillingHost.CustomerIDTTL
	hostCfg.RequestTimeout = cfg.BillingHost.RequestTimeout
	host, err := killbill.NewClient(hostCfg, portLogger)
	if err != nil {
		return nil, err
	}

	policy := expiration.NewPolicy(cfg.Expiration, clock, portLogger)
	engine := reconciliation.NewEngine(
		ledger,
		gateway,
		policy,
		reconciliation.Config{CancelOn3DSAuthError: cfg.Gateway.CancelOn3DSAuthError},
		timeouts,
		portLogger,
	)
	payments := paymentService.NewService(
		ledger,
		mirror,
		gateway,
		host,
		paymentService.Config{
			Description:         cfg.Charge.Description,
			StatementDescriptor: cfg.Charge.StatementDescriptor,
		},
		clock,
		portLogger,
	)
	paymentMethods := paymentmethodService.NewService(mirror, hppStore, gateway, host, clock, timeouts, portLogger)

	mux := http.NewServeMux()
	paymentHandler.NewHandler(payments, engine, portLogger).RegisterRoutes(mux)
	paymentmethodHandler.NewHandler(paymentMethods, portLogger).RegisterRoutes(mux)

	root := http.NewServeMux()
	root.Handle("/v1/", observability.InstrumentHandler("/v1", mux))
	return root, nil
}

// initLogger builds the production JSON logger, or the console logger in development
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

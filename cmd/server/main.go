package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/application/pricingsync"
	"github.com/pricesync/backend/internal/domain/shared"
	"github.com/pricesync/backend/internal/infrastructure/auth"
	"github.com/pricesync/backend/internal/infrastructure/cache"
	"github.com/pricesync/backend/internal/infrastructure/config"
	"github.com/pricesync/backend/internal/infrastructure/ecommerce"
	"github.com/pricesync/backend/internal/infrastructure/logger"
	"github.com/pricesync/backend/internal/infrastructure/migration"
	"github.com/pricesync/backend/internal/infrastructure/persistence"
	"github.com/pricesync/backend/internal/infrastructure/storage"
	"github.com/pricesync/backend/internal/infrastructure/telemetry"
	"github.com/pricesync/backend/internal/interfaces/http/handler"
	"github.com/pricesync/backend/internal/interfaces/http/middleware"
	"github.com/pricesync/backend/internal/interfaces/http/router"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Bootstrap logger, used until the OTLP log bridge is ready
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// OTLP log export, teed into the application logger
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log, err := logger.New(logCfg, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: logProvider,
		Level:          logger.ParseLevel(cfg.Log.Level),
	}))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting pricing sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Tracing, metrics and profiling
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics export", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileCPU:        cfg.Profiling.ProfileCPU,
		ProfileAllocSpace: cfg.Profiling.ProfileMemory,
		ProfileInuseSpace: cfg.Profiling.ProfileMemory,
		ProfileGoroutines: cfg.Profiling.ProfileGoroutines,
		ProfileMutex:      cfg.Profiling.ProfileMutex,
		ProfileBlock:      cfg.Profiling.ProfileBlock,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := migrateSchema(db, log); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		if db.Driver() == "sqlite" {
			dbTracing.DBSystem = "sqlite"
		}
		if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver()))

	// Redis backs the configuration cache and delivery de-duplication; both degrade without it
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, configuration cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	// Repositories
	settingsRepo := persistence.NewGormTenantConfigurationRepository(db.DB)
	sessionRepo := persistence.NewGormShopSessionRepository(db.DB)

	var cacheClient redis.Cmdable
	if redisClient != nil {
		cacheClient = redisClient
	}
	configRepo := cache.NewCachedConfigurationRepository(settingsRepo, cacheClient,
		cache.WithConfigurationTTL(cfg.Cache.ConfigTTL),
		cache.WithConfigurationLogger(log),
	)

	var deliveries shared.IdempotencyStore
	if cfg.Webhook.DedupEnabled {
		deliveries, err = cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithRedisClient(redisClient),
			cache.WithInMemoryFallback(true),
		).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create delivery store", zap.Error(err))
		}
	}

	// Catalog platform
	shopifyCfg := ecommerce.NewShopifyConfig()
	if cfg.Shopify.APIVersion != "" {
		shopifyCfg.APIVersion = cfg.Shopify.APIVersion
	}
	if cfg.Shopify.Timeout > 0 {
		shopifyCfg.Timeout = cfg.Shopify.Timeout
	}
	shopifyCfg.BaseURL = cfg.Shopify.BaseURL
	platform, err := ecommerce.NewShopifyAdapter(shopifyCfg,
		ecommerce.WithHTTPClient(&http.Client{Timeout: shopifyCfg.Timeout}),
		ecommerce.WithAdapterLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to create catalog platform client", zap.Error(err))
	}
	verifier, err := ecommerce.NewHMACVerifier(cfg.Shopify.WebhookSecret)
	if err != nil {
		log.Fatal("Failed to create webhook verifier", zap.Error(err))
	}

	deadLetters, err := newDeadLetterSink(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create dead-letter archive", zap.Error(err))
	}

	// Pipeline
	syncMetrics := telemetry.NewSyncMetrics()
	syncService := pricingsync.NewSyncService(pricingsync.SyncServiceConfig{
		Credentials: sessionRepo,
		Configs:     configRepo,
		Platform:    platform,
		DeadLetters: deadLetters,
		Recorder:    pricingsync.NewMetricsRecorder(syncMetrics),
		Deliveries:  deliveries,
		Dedup: shared.IdempotencyConfig{
			Enabled: cfg.Webhook.DedupEnabled,
			TTL:     cfg.Webhook.DedupTTL,
		},
		Logger: log,
	})

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to configure request validation", zap.Error(err))
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = tracerProvider.IsEnabled()
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(tracingCfg),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Enabled:       meterProvider.IsEnabled(),
		}),
		middleware.ProfilingWithConfig(profilingCfg),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	handlers := router.Handlers{
		System:   handler.NewSystemHandler(version, db),
		Webhooks: handler.NewWebhookHandler(syncService, verifier, cfg.HTTP.WebhookMaxBodySize),
		Settings: handler.NewPricingSettingsHandler(configRepo),
		SessionAuth: middleware.SessionAuth(middleware.SessionAuthConfig{
			Validator: auth.NewSessionTokenService(cfg.Shopify),
			Logger:    log,
		}),
	}
	if cfg.Metrics.Enabled {
		handlers.Metrics = syncMetrics.Handler()
		handlers.MetricsPath = cfg.Metrics.Path
	}
	router.Build(engine, handlers, router.WithAPIVersion("v1"))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if deliveries != nil {
		if err := deliveries.Close(); err != nil {
			log.Warn("Error closing delivery store", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Error closing Redis client", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		bootLog.Warn("Error shutting down logger provider", zap.Error(err))
	}
}

// migrateSchema applies the embedded SQL migrations on postgres and AutoMigrate on sqlite
func migrateSchema(db *persistence.Database, log *zap.Logger) error {
	if db.Driver() == "sqlite" {
		return db.AutoMigrate()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// Closing the migrator would close sqlDB, which stays in use
	return m.Up()
}

// newDeadLetterSink archives faulted runs to S3 when a bucket is configured, otherwise to the log
func newDeadLetterSink(ctx context.Context, cfg *config.Config, log *zap.Logger) (pricingsync.DeadLetterSink, error) {
	if !cfg.DeadLetter.Enabled || cfg.DeadLetter.Bucket == "" {
		return storage.NewLogDeadLetterSink(log), nil
	}

	archive, err := storage.NewS3DeadLetterArchive(ctx, &cfg.DeadLetter, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		log.Warn("Dead-letter bucket check failed", zap.String("bucket", archive.GetBucket()), zap.Error(err))
	}
	return archive, nil
}

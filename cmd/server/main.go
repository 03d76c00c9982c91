package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/dropship/backend/internal/application/catalog"
	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/cache"
	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/dropship/backend/internal/infrastructure/ecommerce"
	"github.com/dropship/backend/internal/infrastructure/feed"
	"github.com/dropship/backend/internal/infrastructure/logger"
	"github.com/dropship/backend/internal/infrastructure/persistence"
	"github.com/dropship/backend/internal/infrastructure/scheduler"
	"github.com/dropship/backend/internal/infrastructure/sizing"
	"github.com/dropship/backend/internal/infrastructure/telemetry"
	"github.com/dropship/backend/internal/interfaces/http/handler"
	"github.com/dropship/backend/internal/interfaces/http/middleware"
	"github.com/dropship/backend/internal/interfaces/http/router"
)

//	@title			Dropship Feed API
//	@version		1.0
//	@description	Drop-shipping supplier feed ingestion: catalog aggregation and sync jobs

//	@host		localhost:8080
//	@BasePath	/api/v1

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
		Sampling:   cfg.App.Env == "production" && cfg.Log.Format == "json",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting dropship backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Metrics
	metrics := telemetry.NewRegistry(telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		Namespace:         cfg.Telemetry.Namespace,
		RuntimeCollectors: cfg.Telemetry.RuntimeCollectors,
	})
	httpMetrics := telemetry.NewHTTPMetrics(metrics)
	ingestionMetrics := telemetry.NewIngestionMetrics(metrics)
	jobMetrics := telemetry.NewJobMetrics(metrics)

	system := handler.NewSystemHandler(cfg.App.Name, version)

	// Job storage
	jobs, history, closeStore := newJobStore(cfg, log, system)
	defer closeStore()

	// Caches
	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	snapshots, err := cacheFactory.CreateSnapshotStore()
	if err != nil {
		log.Fatal("Failed to create snapshot store", zap.Error(err))
	}
	defer closeQuietly(log, "snapshot store", snapshots.Close)

	// Ingestion pipeline
	fetcher := feed.NewFetcher(feed.Config{
		Attempts:     cfg.Fetcher.Attempts,
		BackoffUnit:  cfg.Fetcher.BackoffUnit,
		Timeout:      cfg.Fetcher.Timeout,
		MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
		RateLimit:    cfg.Fetcher.RateLimit,
		RateBurst:    cfg.Fetcher.RateBurst,
		UserAgent:    cfg.Fetcher.UserAgent,
	}, log, feed.WithRecorder(ingestionMetrics))
	parsers := ecommerce.NewDefaultRegistry(sizing.Normalizer{}, log, ecommerce.WithParseRecorder(ingestionMetrics))

	aggregatorCfg := catalogapp.AggregatorConfig{
		MaxConcurrentSources: cfg.Aggregator.MaxConcurrentSources,
	}
	aggregatorOpts := []catalogapp.AggregatorOption{catalogapp.WithRecorder(ingestionMetrics)}
	if cfg.Aggregator.CacheEnabled {
		catalogCache, err := cacheFactory.CreateCatalogCache()
		if err != nil {
			log.Fatal("Failed to create catalog cache", zap.Error(err))
		}
		defer closeQuietly(log, "catalog cache", catalogCache.Close)
		aggregatorCfg.CacheTTL = cfg.Aggregator.CacheTTL
		aggregatorOpts = append(aggregatorOpts, catalogapp.WithCache(catalogCache))
	}
	aggregator := catalogapp.NewAggregator(fetcher, parsers, aggregatorCfg, log, aggregatorOpts...)

	// Sync jobs
	schedulerCfg := scheduler.DefaultConfig()
	schedulerCfg.Workers = cfg.Scheduler.Workers
	schedulerCfg.PollInterval = cfg.Scheduler.PollInterval
	schedulerCfg.JobTimeout = cfg.Scheduler.JobTimeout
	schedulerCfg.StaleAfter = cfg.Scheduler.StaleAfter
	schedulerCfg.ReapInterval = cfg.Scheduler.ReapInterval
	schedulerCfg.MaxRetries = cfg.Scheduler.MaxRetries
	schedulerCfg.RetryPolicy = syncjob.RetryPolicy{
		BaseDelay: cfg.Scheduler.RetryDelay,
		MaxDelay:  cfg.Scheduler.MaxRetryDelay,
	}

	jobService := scheduler.NewService(jobs, history, schedulerCfg, log, scheduler.WithJobRecorder(jobMetrics))
	executors := scheduler.NewExecutorRegistry()
	if err := executors.Register(syncjob.JobTypeDatasetSync,
		catalogapp.NewDatasetSyncExecutor(aggregator, cfg, snapshots, log)); err != nil {
		log.Fatal("Failed to register executor", zap.Error(err))
	}

	var runner *scheduler.Runner
	var jobRunner handler.JobRunner
	if cfg.Scheduler.Enabled {
		runner = scheduler.NewRunner(jobService, executors, schedulerCfg, log, scheduler.WithRunRecorder(jobMetrics))
		if err := runner.Start(context.Background()); err != nil {
			log.Fatal("Failed to start job runner", zap.Error(err))
		}
		jobRunner = runner
	}

	// HTTP
	engine := newEngine(cfg, log, httpMetrics)
	limiter := addRateLimit(engine, cfg)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Handle(http.MethodGet, "/health", system.Health)
	if metrics.IsEnabled() {
		r.Handle(http.MethodGet, metricsPath(cfg), gin.WrapH(metrics.Handler()))
	}
	r.Register(handler.NewCatalogHandler(aggregator, cfg)).
		Register(handler.NewJobHandler(jobService, jobRunner)).
		Register(system)
	r.Setup()
	log.Debug("Routes registered", zap.Strings("routes", r.Routes()))

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if runner != nil {
		if err := runner.Stop(ctx); err != nil {
			log.Error("Job runner did not stop cleanly", zap.Error(err))
		}
	}
	if limiter != nil {
		limiter.Stop()
	}

	log.Info("Server exited gracefully")
}

// newJobStore opens the configured job repositories and registers their health check
func newJobStore(cfg *config.Config, log *zap.Logger, system *handler.SystemHandler) (syncjob.Repository, syncjob.HistoryRepository, func()) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using in-memory job store; jobs are lost on restart")
		return persistence.NewInMemorySyncJobRepository(), persistence.NewInMemorySyncHistoryRepository(), func() {}
	}

	gormOpts := []logger.GormLoggerOption{logger.WithSlowThreshold(cfg.Database.SlowQuery)}
	if cfg.App.Env == "production" {
		gormOpts = append(gormOpts, logger.WithParameterizedSQL())
	}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), gormOpts...)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	system.AddCheck("database", func(context.Context) error { return db.Ping() })
	return persistence.NewGormSyncJobRepository(db.DB), persistence.NewGormSyncHistoryRepository(db.DB), func() {
		closeQuietly(log, "database", db.Close)
	}
}

func newEngine(cfg *config.Config, log *zap.Logger, httpMetrics *telemetry.HTTPMetrics) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log, logger.WithQuietPaths("/health", metricsPath(cfg))),
		logger.Recovery(log),
		middleware.HTTPMetrics(httpMetrics, metricsPath(cfg), "/health"),
		middleware.Secure(),
		middleware.CORS(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)
	return engine
}

func addRateLimit(engine *gin.Engine, cfg *config.Config) *middleware.RateLimiter {
	if !cfg.HTTP.RateLimitEnabled {
		return nil
	}
	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	engine.Use(middleware.RateLimit(limiter))
	return limiter
}

func metricsPath(cfg *config.Config) string {
	if cfg.Telemetry.Path == "" {
		return "/metrics"
	}
	return cfg.Telemetry.Path
}

func closeQuietly(log *zap.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("Error closing "+name, zap.Error(err))
	}
}

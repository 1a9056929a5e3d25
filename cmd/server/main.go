package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/jiffoo/mall/internal/application/catalog"
	identityapp "github.com/jiffoo/mall/internal/application/identity"
	pluginapp "github.com/jiffoo/mall/internal/application/plugin"
	tradeapp "github.com/jiffoo/mall/internal/application/trade"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/cache"
	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/jiffoo/mall/internal/infrastructure/event"
	"github.com/jiffoo/mall/internal/infrastructure/i18n"
	"github.com/jiffoo/mall/internal/infrastructure/invoice"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/persistence"
	pluginreg "github.com/jiffoo/mall/internal/infrastructure/plugin"
	"github.com/jiffoo/mall/internal/infrastructure/queue"
	"github.com/jiffoo/mall/internal/infrastructure/storage"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
	"github.com/jiffoo/mall/internal/interfaces/http/handler"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
	"github.com/jiffoo/mall/internal/interfaces/http/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/jiffoo/mall/docs"
)

//	@title			Jiffoo Mall API
//	@version		1.0
//	@description	Multi-tenant e-commerce backend: stores, catalog, cart, orders and plugins
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/jiffoo/mall

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@securityDefinitions.apikey	ServiceToken
//	@in							header
//	@name						X-Service-Token

const version = "1.0.0"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// OTLP log export tees into the console logger once the provider is up
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log, err = logger.New(logCfg, logProvider.Core(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Jiffoo Mall",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, cfg.Database.DBName); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Redis is optional; a nil client selects the in-memory fallbacks
	cacheFactory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	redisClient, err := cacheFactory.Connect(ctx)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}()
	tenantStore, err := cacheFactory.Store(ctx, cache.TenantKeyPrefix)
	if err != nil {
		log.Fatal("Failed to create tenant cache", zap.Error(err))
	}
	tenantCache := cache.NewTenantCache(tenantStore, cfg.Tenant.CacheTTL, log)

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	pluginRepo := persistence.NewGormPluginInstanceRepository(db.DB)
	tx := persistence.NewGormTransactor(db.DB)

	// Security
	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewTokenBlacklist(redisClient)
	serviceTokens := auth.NewServiceTokenService(cfg.Service, cfg.JWT.Issuer)
	licenses := auth.NewLicenseVerifier(cfg.License)

	images := newImageStorage(ctx, cfg, log)

	registry, err := pluginreg.NewBuiltinRegistry(cfg.Plugins, log)
	if err != nil {
		log.Fatal("Failed to load plugin registry", zap.Error(err))
	}
	invoiceTemplate, err := invoice.NewTemplate()
	if err != nil {
		log.Fatal("Failed to parse invoice template", zap.Error(err))
	}
	pdfRenderer := invoice.NewChromedpRenderer(cfg.Invoice, log)
	defer func() {
		_ = pdfRenderer.Close()
	}()

	// Application services
	eventBus := event.NewInMemoryEventBus(log)
	tenantService := identityapp.NewTenantService(tenantRepo, userRepo, tx, tenantCache, log)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(userRepo, blacklist, cfg.JWT.RefreshTokenExpiration, log)
	productService := catalogapp.NewProductService(productRepo, images, cfg.Storage.MaxImageSize)
	pluginService := pluginapp.NewService(registry, pluginRepo, licenses)
	cartService := tradeapp.NewCartService(cartRepo, productRepo)
	orderService := tradeapp.NewOrderService(orderRepo, cartRepo, productRepo, tx, eventBus,
		tenantService, pluginService, tradeapp.WithInvoices(invoiceTemplate, pdfRenderer))

	// Metrics
	metricsRegistry := telemetry.NewRegistry(sqlDB)
	httpMetrics := telemetry.NewHTTPMetrics(metricsRegistry)

	// Background jobs
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var worker *queue.Worker
	if cfg.Queue.Enabled {
		jobQueue := queue.New(cfg.Queue, redisClient, log)
		worker = queue.NewWorker(jobQueue, queue.WorkerConfig{
			Workers:    cfg.Queue.Workers,
			JobTimeout: cfg.Queue.JobTimeout,
		}, log, queue.NewMetrics(metricsRegistry))
		tradeapp.NewOrderJobs(orderRepo, userRepo, pluginService).Register(worker)
		event.ForwardToQueue(eventBus, jobQueue, tradeapp.JobRoutes()...)
		if err := worker.Start(workerCtx); err != nil {
			log.Fatal("Failed to start job worker", zap.Error(err))
		}
	}

	// Rate limiting
	var limiter, credentialLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		go limiter.Cleanup(workerCtx)
		if cfg.HTTP.AuthRateLimitRPS > 0 {
			credentialLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRPS, 0)
			go credentialLimiter.Cleanup(workerCtx)
		}
	}

	middleware.SetupValidator()

	systemOpts := []handler.SystemOption{
		handler.WithVersion(cfg.App.Name, version),
		handler.WithHealthCheck("database", db.Ping),
	}
	if redisClient != nil {
		systemOpts = append(systemOpts, handler.WithHealthCheck("redis", redisPing(redisClient)))
	}

	engine := router.NewEngine(cfg, router.Deps{
		Logger:            log,
		Translator:        i18n.New(),
		JWT:               jwtService,
		Blacklist:         blacklist,
		ServiceTokens:     serviceTokens,
		Tenants:           tenantService,
		Limiter:           limiter,
		CredentialLimiter: credentialLimiter,
		Metrics:           httpMetrics,
		MetricsHandler:    promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}),
		Handlers: router.Handlers{
			System:  handler.NewSystemHandler(systemOpts...),
			Auth:    handler.NewAuthHandler(authService, pluginService),
			Account: handler.NewAccountHandler(userService, authService),
			User:    handler.NewUserHandler(userService),
			Tenant:  handler.NewTenantHandler(tenantService),
			Product: handler.NewProductHandler(productService),
			Cart:    handler.NewCartHandler(cartService),
			Order:   handler.NewOrderHandler(orderService),
			Plugin:  handler.NewPluginHandler(pluginService),
		},
	})

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if worker != nil {
		if err := worker.Stop(shutdownCtx); err != nil {
			log.Error("Job worker did not drain", zap.Error(err))
		}
	}
	stopWorkers()
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing traces", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newImageStorage returns S3 storage when it is configured, otherwise an
// in-process store that only lives as long as the server
func newImageStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) storage.ObjectStorage {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, product images are kept in memory")
		return storage.NewMemoryObjectStorage("http://localhost:" + cfg.App.Port + "/media")
	}
	s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare storage bucket", zap.Error(err), zap.String("bucket", s3.GetBucket()))
	}
	return s3
}

func redisPing(client *redis.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/jiffoo/mall/internal/infrastructure/i18n"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP engine is assembled from
type Deps struct {
	Logger     *zap.Logger
	Translator *i18n.Translator

	JWT           *auth.JWTService
	Blacklist     auth.TokenBlacklist
	ServiceTokens *auth.ServiceTokenService
	Tenants       middleware.TenantResolver

	// Limiter throttles every request per tenant and client IP; nil disables
	// rate limiting. CredentialLimiter additionally throttles sign-in and
	// sign-up.
	Limiter           *middleware.RateLimiter
	CredentialLimiter *middleware.RateLimiter

	// Metrics feeds the request collectors; MetricsHandler serves the scrape
	// endpoint. Both are optional.
	Metrics        *telemetry.HTTPMetrics
	MetricsHandler http.Handler

	// TracerProvider defaults to the global provider when tracing is on
	TracerProvider trace.TracerProvider

	Handlers Handlers
}

// multipartOverhead leaves room for form boundaries and headers around an image
const multipartOverhead = 64 << 10

// NewEngine builds the gin engine: the global middleware chain, the
// operational endpoints and the versioned API.
//
// Middleware order:
//  1. RequestID, recovery and access logging
//  2. Locale, security headers, CORS
//  3. Metrics, tracing, profiling
//  4. Rate limiting and body size limit
//  5. Optional authentication, then tenant resolution
//  6. Span enrichment with the resolved tenant and user
func NewEngine(cfg *config.Config, deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	translator := deps.Translator
	if translator == nil {
		translator = i18n.New()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	jwtCfg := middleware.JWTMiddlewareConfig{
		JWTService:     deps.JWT,
		TokenBlacklist: deps.Blacklist,
		Logger:         log,
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Locale(translator))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	if deps.Metrics != nil {
		engine.Use(middleware.HTTPMetrics(deps.Metrics))
	}
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		Provider:    deps.TracerProvider,
	}))
	engine.Use(middleware.Profiling(cfg.Profiling.Enabled))
	if deps.Limiter != nil {
		engine.Use(middleware.RateLimit(deps.Limiter))
	}
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, middleware.RouteBodyLimit{
			Route:    "/api/v1/admin/products/:id/images",
			MaxBytes: cfg.Storage.MaxImageSize + multipartOverhead,
		}))
	}
	engine.Use(middleware.OptionalJWTAuthMiddleware(jwtCfg))
	engine.Use(middleware.TenantMiddleware(tenantConfig(cfg, deps.Tenants, log)))
	engine.Use(middleware.SpanEnricher())

	h := deps.Handlers
	engine.GET("/health", h.System.Health)
	if cfg.Metrics.Enabled && deps.MetricsHandler != nil {
		engine.GET(metricsPath(cfg.Metrics), gin.WrapH(deps.MetricsHandler))
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, middleware.JWTAuthMiddleware(jwtCfg)),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	guards := Guards{
		Authenticated: middleware.JWTAuthMiddleware(jwtCfg),
		Service: middleware.ServiceAuth(middleware.ServiceAuthConfig{
			Tokens:   deps.ServiceTokens,
			Resolver: deps.Tenants,
			Logger:   log,
		}),
	}
	if deps.CredentialLimiter != nil {
		guards.Credentials = middleware.RateLimit(deps.CredentialLimiter)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(Routes(h, guards)...)
	r.Setup()
	return engine
}

func metricsPath(cfg config.MetricsConfig) string {
	if cfg.Path == "" {
		return "/metrics"
	}
	return cfg.Path
}

// tenantConfig merges the configured public paths with the routes that never
// address a single store
func tenantConfig(cfg *config.Config, resolver middleware.TenantResolver, log *zap.Logger) middleware.TenantMiddlewareConfig {
	public := append([]string{metricsPath(cfg.Metrics)}, TenantPublicPaths...)
	return middleware.TenantMiddlewareConfig{
		HeaderEnabled:  cfg.Tenant.HeaderEnabled,
		JWTEnabled:     true,
		HostEnabled:    cfg.Tenant.HostEnabled,
		BaseDomain:     cfg.Tenant.BaseDomain,
		PublicPaths:    append(public, cfg.Tenant.PublicPaths...),
		PublicPrefixes: append(append([]string{}, TenantPublicPrefixes...), cfg.Tenant.PublicPrefixes...),
		Required:       true,
		Resolver:       resolver,
		Logger:         log,
	}
}

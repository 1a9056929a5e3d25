package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	catalogapp "github.com/jiffoo/mall/internal/application/catalog"
	"github.com/jiffoo/mall/internal/application/identity"
	pluginapp "github.com/jiffoo/mall/internal/application/plugin"
	tradeapp "github.com/jiffoo/mall/internal/application/trade"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/jiffoo/mall/internal/infrastructure/event"
	"github.com/jiffoo/mall/internal/infrastructure/persistence"
	pluginreg "github.com/jiffoo/mall/internal/infrastructure/plugin"
	"github.com/jiffoo/mall/internal/infrastructure/storage"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
	"github.com/jiffoo/mall/internal/interfaces/http/handler"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

type engineOptions struct {
	credentialBurst int
	dbHealthy       bool
}

func newTestEngine(t *testing.T, opts engineOptions) http.Handler {
	t.Helper()
	log := zaptest.NewLogger(t)
	middleware.SetupValidator()

	db, err := persistence.Open(sqlite.Open(":memory:"), persistence.Options{TenantRequired: true})
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		App:     config.AppConfig{Name: "mall-test", Env: "test"},
		HTTP:    config.HTTPConfig{MaxBodySize: 1 << 20, CORSAllowOrigins: []string{"https://admin.acme.test"}},
		Tenant:  config.TenantConfig{HeaderEnabled: true},
		Metrics: config.MetricsConfig{Enabled: true},
		Swagger: config.SwaggerConfig{Enabled: false},
	}

	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	tx := persistence.NewGormTransactor(db.DB)

	jwt := auth.NewJWTService(config.JWTConfig{
		Secret:                 "router-test-secret-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "mall-test",
		MaxRefreshCount:        3,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	registry, err := pluginreg.NewBuiltinRegistry(config.PluginsConfig{}, log)
	require.NoError(t, err)

	tenants := identity.NewTenantService(tenantRepo, userRepo, tx, nil, log)
	authService := identity.NewAuthService(userRepo, jwt, blacklist, identity.DefaultAuthServiceConfig(), log)
	users := identity.NewUserService(userRepo, blacklist, time.Hour, log)
	products := catalogapp.NewProductService(productRepo, storage.NewMemoryObjectStorage("http://cdn.test"), 1<<20)
	plugins := pluginapp.NewService(registry, persistence.NewGormPluginInstanceRepository(db.DB),
		auth.NewLicenseVerifier(config.LicenseConfig{}))
	orders := tradeapp.NewOrderService(orderRepo, cartRepo, productRepo, tx,
		event.NewInMemoryEventBus(log), tenants, plugins)

	reg := telemetry.NewRegistry(sqlDB)
	dbCheck := func(ctx context.Context) error {
		if !opts.dbHealthy {
			return errors.New("connection refused")
		}
		return sqlDB.PingContext(ctx)
	}

	deps := Deps{
		Logger:         log,
		JWT:            jwt,
		Blacklist:      blacklist,
		ServiceTokens:  auth.NewServiceTokenService(config.ServiceConfig{Secret: "service-test-secret-at-least-32-chars", Allowed: []string{"relay"}}, "mall-test"),
		Tenants:        tenants,
		Limiter:        middleware.NewRateLimiter(1000, 1000),
		Metrics:        telemetry.NewHTTPMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Handlers: Handlers{
			System:  handler.NewSystemHandler(handler.WithHealthCheck("database", dbCheck)),
			Auth:    handler.NewAuthHandler(authService, plugins),
			Account: handler.NewAccountHandler(users, authService),
			User:    handler.NewUserHandler(users),
			Tenant:  handler.NewTenantHandler(tenants),
			Product: handler.NewProductHandler(products),
			Cart:    handler.NewCartHandler(tradeapp.NewCartService(cartRepo, productRepo)),
			Order:   handler.NewOrderHandler(orders),
			Plugin:  handler.NewPluginHandler(plugins),
		},
	}
	if opts.credentialBurst > 0 {
		deps.CredentialLimiter = middleware.NewRateLimiter(0.001, opts.credentialBurst)
	}
	return NewEngine(cfg, deps)
}

func call(engine http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func registerStore(t *testing.T, engine http.Handler, slug string) {
	t.Helper()
	w := call(engine, http.MethodPost, "/api/v1/tenants", handler.RegisterTenantRequest{
		Slug:          slug,
		Name:          "Acme Outfitters",
		AdminEmail:    "admin@" + slug + ".test",
		AdminUsername: slug + "-admin",
		AdminPassword: "correct-horse-1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestEngine_OperationalEndpoints(t *testing.T) {
	engine := newTestEngine(t, engineOptions{dbHealthy: true})

	w := call(engine, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = call(engine, http.MethodGet, "/api/v1/system/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = call(engine, http.MethodGet, "/api/v1/system/info", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(engine, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mall_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/system/ping"`)

	w = call(engine, http.MethodGet, "/swagger/index.html", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEngine_HealthReportsFailedDependency(t *testing.T) {
	engine := newTestEngine(t, engineOptions{dbHealthy: false})
	w := call(engine, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEngine_TenantResolution(t *testing.T) {
	engine := newTestEngine(t, engineOptions{dbHealthy: true})
	registerStore(t, engine, "acme")

	tests := []struct {
		name         string
		headers      map[string]string
		expectedCode int
		expectedErr  string
	}{
		{name: "by slug", headers: map[string]string{middleware.HeaderTenantID: "acme"}, expectedCode: http.StatusOK},
		{name: "missing", expectedCode: http.StatusBadRequest, expectedErr: "TENANT_REQUIRED"},
		{name: "unknown", headers: map[string]string{middleware.HeaderTenantID: "globex"}, expectedCode: http.StatusNotFound, expectedErr: "TENANT_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(engine, http.MethodGet, "/api/v1/products", nil, tt.headers)
			require.Equal(t, tt.expectedCode, w.Code, w.Body.String())
			if tt.expectedErr != "" {
				assert.Equal(t, tt.expectedErr, errorCode(t, w))
			}
		})
	}

	// public routes never need a store
	w := call(engine, http.MethodGet, "/api/v1/plugins/catalog", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = call(engine, http.MethodPost, "/api/v1/auth/refresh", handler.RefreshTokenRequest{RefreshToken: "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEngine_AccessControl(t *testing.T) {
	engine := newTestEngine(t, engineOptions{dbHealthy: true})
	registerStore(t, engine, "acme")
	store := map[string]string{middleware.HeaderTenantID: "acme"}

	tests := []struct {
		method       string
		path         string
		headers      map[string]string
		expectedCode int
	}{
		{http.MethodGet, "/api/v1/cart", store, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/cart", nil, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/auth/me", nil, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/admin/tenant", nil, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/products", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/orders", store, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/admin/products", store, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/platform/tenants", nil, http.StatusUnauthorized},
		{http.MethodPut, "/api/v1/internal/orders/00000000-0000-0000-0000-000000000001/status", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := call(engine, tt.method, tt.path, nil, tt.headers)
			assert.Equal(t, tt.expectedCode, w.Code, w.Body.String())
		})
	}
}

func TestEngine_CredentialRateLimit(t *testing.T) {
	engine := newTestEngine(t, engineOptions{dbHealthy: true, credentialBurst: 3})
	registerStore(t, engine, "acme")
	store := map[string]string{middleware.HeaderTenantID: "acme"}
	login := handler.LoginRequest{Email: "admin@acme.test", Password: "wrong-password"}

	for i := 0; i < 3; i++ {
		w := call(engine, http.MethodPost, "/api/v1/auth/login", login, store)
		require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
	}
	w := call(engine, http.MethodPost, "/api/v1/auth/login", login, store)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))

	// browsing is not throttled by the sign-in limiter
	w = call(engine, http.MethodGet, "/api/v1/products", nil, store)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, engineOptions{dbHealthy: true})
	big := bytes.Repeat([]byte("a"), 2<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/jiffoo/mall/internal/application/catalog"
	"github.com/jiffoo/mall/internal/application/identity"
	pluginapp "github.com/jiffoo/mall/internal/application/plugin"
	tradeapp "github.com/jiffoo/mall/internal/application/trade"
	domain "github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/jiffoo/mall/internal/infrastructure/event"
	"github.com/jiffoo/mall/internal/infrastructure/i18n"
	"github.com/jiffoo/mall/internal/infrastructure/invoice"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/persistence"
	pluginreg "github.com/jiffoo/mall/internal/infrastructure/plugin"
	"github.com/jiffoo/mall/internal/infrastructure/storage"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const testPassword = "correct-horse-1"

// testEnv is the full application stack over an in-memory sqlite database
type testEnv struct {
	t         *testing.T
	engine    *gin.Engine
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	services  *auth.ServiceTokenService
	images    *storage.MemoryObjectStorage

	tenants  *identity.TenantService
	auth     *identity.AuthService
	users    *identity.UserService
	products *catalogapp.ProductService
	plugins  *pluginapp.Service
	carts    *tradeapp.CartService
	orders   *tradeapp.OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := persistence.Open(sqlite.Open(":memory:"), persistence.Options{TenantRequired: true})
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zap.NewNop()
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	instanceRepo := persistence.NewGormPluginInstanceRepository(db.DB)
	tx := persistence.NewGormTransactor(db.DB)

	env := &testEnv{
		t: t,
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "handler-test-secret-at-least-32-chars",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: 24 * time.Hour,
			Issuer:                 "mall-test",
			MaxRefreshCount:        3,
		}),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		services: auth.NewServiceTokenService(config.ServiceConfig{
			Secret:  "service-test-secret-at-least-32-chars",
			Allowed: []string{"payments-relay"},
		}, "mall-test"),
		images: storage.NewMemoryObjectStorage("http://cdn.test"),
	}

	registry, err := pluginreg.NewBuiltinRegistry(config.PluginsConfig{}, log)
	require.NoError(t, err)
	tmpl, err := invoice.NewTemplate()
	require.NoError(t, err)

	env.tenants = identity.NewTenantService(tenantRepo, userRepo, tx, nil, log)
	env.auth = identity.NewAuthService(userRepo, env.jwt, env.blacklist, identity.DefaultAuthServiceConfig(), log)
	env.users = identity.NewUserService(userRepo, env.blacklist, time.Hour, log)
	env.products = catalogapp.NewProductService(productRepo, env.images, 1<<20)
	env.plugins = pluginapp.NewService(registry, instanceRepo, auth.NewLicenseVerifier(config.LicenseConfig{Mode: auth.LicenseModeStub}))
	env.carts = tradeapp.NewCartService(cartRepo, productRepo)
	env.orders = tradeapp.NewOrderService(orderRepo, cartRepo, productRepo, tx,
		event.NewInMemoryEventBus(log), env.tenants, env.plugins,
		tradeapp.WithInvoices(tmpl, nil))

	jwtCfg := middleware.JWTMiddlewareConfig{JWTService: env.jwt, TokenBlacklist: env.blacklist}
	env.engine = gin.New()
	env.engine.Use(
		middleware.RequestID(),
		middleware.Locale(i18n.New()),
		middleware.OptionalJWTAuthMiddleware(jwtCfg),
		middleware.TenantMiddleware(middleware.TenantMiddlewareConfig{
			HeaderEnabled:  true,
			JWTEnabled:     true,
			Required:       true,
			Resolver:       env.tenants,
			PublicPaths:    []string{"/health", "/api/v1/tenants", "/api/v1/auth/refresh", "/api/v1/plugins/catalog"},
			PublicPrefixes: []string{"/api/v1/platform/", "/api/v1/internal/"},
		}),
	)
	env.mount(jwtCfg)
	return env
}

// mount registers every handler on the same paths the router uses
func (e *testEnv) mount(jwtCfg middleware.JWTMiddlewareConfig) {
	authH := NewAuthHandler(e.auth, e.plugins)
	accountH := NewAccountHandler(e.users, e.auth)
	userH := NewUserHandler(e.users)
	tenantH := NewTenantHandler(e.tenants)
	productH := NewProductHandler(e.products)
	cartH := NewCartHandler(e.carts)
	orderH := NewOrderHandler(e.orders)
	pluginH := NewPluginHandler(e.plugins)

	api := e.engine.Group("/api/v1")
	api.POST("/tenants", tenantH.Register)
	api.POST("/auth/refresh", authH.RefreshToken)
	api.GET("/plugins/catalog", pluginH.Catalog)

	storefront := api.Group("", middleware.RequireTenant())
	storefront.POST("/auth/register", authH.Register)
	storefront.POST("/auth/login", authH.Login)
	storefront.GET("/auth/oauth/:slug/authorize", authH.OAuthAuthorize)
	storefront.GET("/products", productH.ListActive)
	storefront.GET("/products/:id", productH.GetActive)

	signedIn := api.Group("", middleware.JWTAuthMiddleware(jwtCfg))
	authed := signedIn.Group("", middleware.RequireTenant())
	authed.POST("/auth/logout", authH.Logout)
	authed.GET("/auth/me", authH.Me)
	authed.GET("/account/profile", accountH.GetProfile)
	authed.PUT("/account/profile", accountH.UpdateProfile)
	authed.PUT("/account/password", accountH.ChangePassword)
	authed.GET("/cart", cartH.Get)
	authed.POST("/cart/items", cartH.AddItem)
	authed.PUT("/cart/items/:productId", cartH.UpdateItem)
	authed.DELETE("/cart/items/:productId", cartH.RemoveItem)
	authed.DELETE("/cart", cartH.Clear)
	authed.POST("/orders", orderH.Place)
	authed.GET("/orders", orderH.List)
	authed.GET("/orders/:id", orderH.Get)
	authed.POST("/orders/:id/cancel", orderH.Cancel)
	authed.POST("/orders/:id/pay", orderH.Pay)
	authed.GET("/orders/:id/invoice", orderH.Invoice)

	admin := authed.Group("/admin", middleware.RequireMinRole(domain.RoleAdmin))
	admin.GET("/tenant", tenantH.Current)
	admin.PUT("/tenant", tenantH.UpdateCurrent)
	admin.GET("/users", userH.List)
	admin.GET("/users/:id", userH.Get)
	admin.PUT("/users/:id/role", userH.ChangeRole)
	admin.POST("/users/:id/disable", userH.Disable)
	admin.POST("/users/:id/enable", userH.Enable)
	admin.GET("/products", productH.List)
	admin.GET("/products/:id", productH.Get)
	admin.POST("/products", productH.Create)
	admin.PUT("/products/:id", productH.Update)
	admin.DELETE("/products/:id", productH.Delete)
	admin.POST("/products/:id/images", productH.UploadImage)
	admin.GET("/orders", orderH.AdminList)
	admin.GET("/orders/:id", orderH.AdminGet)
	admin.PUT("/orders/:id/status", orderH.UpdateStatus)
	admin.GET("/plugins", pluginH.List)
	admin.POST("/plugins", pluginH.Install)
	admin.PUT("/plugins/:slug/config", pluginH.Configure)
	admin.POST("/plugins/:slug/enable", pluginH.Enable)
	admin.POST("/plugins/:slug/disable", pluginH.Disable)
	admin.DELETE("/plugins/:slug", pluginH.Uninstall)

	platform := signedIn.Group("/platform", middleware.RequireRole(domain.RoleSuperAdmin))
	platform.GET("/tenants", tenantH.List)
	platform.GET("/tenants/:id", tenantH.Get)
	platform.POST("/tenants/:id/suspend", tenantH.Suspend)
	platform.POST("/tenants/:id/activate", tenantH.Activate)

	internal := api.Group("/internal",
		middleware.ServiceAuth(middleware.ServiceAuthConfig{Tokens: e.services, Resolver: e.tenants}),
		middleware.RequireScope(auth.ScopeOrdersWrite))
	internal.PUT("/orders/:id/status", orderH.InternalUpdateStatus)
}

// serviceToken mints a relay token bound to the store
func (e *testEnv) serviceToken(tenantID uuid.UUID, scopes ...string) string {
	e.t.Helper()
	token, _, err := e.services.Issue(auth.IssueInput{Service: "payments-relay", TenantID: &tenantID, Scopes: scopes})
	require.NoError(e.t, err)
	return token
}

// superAdmin returns a platform operator token. The account lives in the
// store but its tenant claim is ignored by the tenant middleware.
func (e *testEnv) superAdmin(tenantID uuid.UUID) string {
	e.t.Helper()
	return e.token(identity.UserDTO{ID: uuid.New(), TenantID: tenantID, Email: "ops@platform.test", Role: string(domain.RoleSuperAdmin)})
}

// ctx is a background context bound to a store, as the tenant middleware
// would produce
func (e *testEnv) ctx(tenantID uuid.UUID) context.Context {
	return logger.ContextWithTenantID(context.Background(), tenantID.String())
}

// store opens a store and returns it with an access token for its admin
func (e *testEnv) store(slug string) (identity.TenantDTO, string) {
	e.t.Helper()
	res, err := e.tenants.Register(context.Background(), identity.RegisterTenantInput{
		Slug:          slug,
		Name:          "Store " + slug,
		ContactEmail:  "owner@" + slug + ".test",
		AdminEmail:    "admin@" + slug + ".test",
		AdminUsername: slug + "-admin",
		AdminPassword: testPassword,
	})
	require.NoError(e.t, err)
	return res.Tenant, e.token(res.Admin)
}

// customer signs a customer up in the store and returns an access token
func (e *testEnv) customer(tenantID uuid.UUID, email string) (identity.UserDTO, string) {
	e.t.Helper()
	res, err := e.auth.Register(e.ctx(tenantID), identity.RegisterInput{
		TenantID: tenantID,
		Email:    email,
		Username: "shopper",
		Password: testPassword,
	})
	require.NoError(e.t, err)
	return res.User, res.AccessToken
}

func (e *testEnv) userByEmail(tenantID uuid.UUID, email string) identity.UserDTO {
	e.t.Helper()
	page, err := e.users.List(e.ctx(tenantID), shared.Filter{Search: email})
	require.NoError(e.t, err)
	require.Len(e.t, page.Items, 1)
	return page.Items[0]
}

func (e *testEnv) token(user identity.UserDTO) string {
	e.t.Helper()
	pair, err := e.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
	})
	require.NoError(e.t, err)
	return pair.AccessToken
}

// product creates an active product in the store
func (e *testEnv) product(tenantID uuid.UUID, name, price string, stock int) catalogapp.ProductResponse {
	e.t.Helper()
	p, err := e.products.Create(e.ctx(tenantID), tenantID, catalogapp.CreateProductRequest{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Status: "active",
	})
	require.NoError(e.t, err)
	return *p
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withTenant(tenant string) requestOption {
	return func(r *http.Request) { r.Header.Set(middleware.HeaderTenantID, tenant) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (e *testEnv) do(method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data member of a success envelope
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool      `json:"success"`
		Data    T         `json:"data"`
		Meta    *dto.Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	assert.True(t, resp.Success, w.Body.String())
	return resp.Data
}

func decodeMeta(t *testing.T, w *httptest.ResponseRecorder) *dto.Meta {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	return resp.Meta
}

// decodeError asserts an error envelope and returns its code
func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error
}

package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/interfaces/http/handler"
	"github.com/jiffoo/mall/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers of every API area
type Handlers struct {
	System  *handler.SystemHandler
	Auth    *handler.AuthHandler
	Account *handler.AccountHandler
	User    *handler.UserHandler
	Tenant  *handler.TenantHandler
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Plugin  *handler.PluginHandler
}

// Guards are the access checks layered on route groups
type Guards struct {
	// Authenticated requires a valid access token
	Authenticated gin.HandlerFunc
	// Service authenticates internal callers by service token
	Service gin.HandlerFunc
	// Credentials throttles sign-in and sign-up attempts; optional
	Credentials gin.HandlerFunc
}

// Paths the tenant middleware lets through without a store. Platform and
// internal routes resolve their store elsewhere.
var (
	TenantPublicPaths = []string{
		"/health",
		"/api/v1/tenants",
		"/api/v1/auth/refresh",
		"/api/v1/plugins/catalog",
		"/api/v1/system/info",
		"/api/v1/system/ping",
	}
	TenantPublicPrefixes = []string{
		"/swagger/",
		"/api/v1/platform/",
		"/api/v1/internal/",
	}
)

func chain(first gin.HandlerFunc, rest ...gin.HandlerFunc) []gin.HandlerFunc {
	if first == nil {
		return rest
	}
	return append([]gin.HandlerFunc{first}, rest...)
}

// Routes builds the route groups of the mall API
func Routes(h Handlers, g Guards) []RouteRegistrar {
	store := middleware.RequireTenant()

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)
	system.GET("/ping", h.System.Ping)

	tenants := NewDomainGroup("tenants", "/tenants")
	tenants.POST("", chain(g.Credentials, h.Tenant.Register)...)

	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.POST("/register", chain(g.Credentials, store, h.Auth.Register)...)
	authRoutes.POST("/login", chain(g.Credentials, store, h.Auth.Login)...)
	authRoutes.POST("/refresh", h.Auth.RefreshToken)
	authRoutes.GET("/oauth/:slug/authorize", store, h.Auth.OAuthAuthorize)
	session := authRoutes.Group("session", "").Use(g.Authenticated, store)
	session.POST("/logout", h.Auth.Logout)
	session.GET("/me", h.Auth.Me)

	storefront := NewDomainGroup("catalog", "/products").Use(store)
	storefront.GET("", h.Product.ListActive)
	storefront.GET("/:id", h.Product.GetActive)

	plugins := NewDomainGroup("plugins", "/plugins")
	plugins.GET("/catalog", h.Plugin.Catalog)

	account := NewDomainGroup("account", "/account").Use(g.Authenticated, store)
	account.GET("/profile", h.Account.GetProfile)
	account.PUT("/profile", h.Account.UpdateProfile)
	account.PUT("/password", h.Account.ChangePassword)

	cart := NewDomainGroup("cart", "/cart").Use(g.Authenticated, store)
	cart.GET("", h.Cart.Get)
	cart.DELETE("", h.Cart.Clear)
	cart.POST("/items", h.Cart.AddItem)
	cart.PUT("/items/:productId", h.Cart.UpdateItem)
	cart.DELETE("/items/:productId", h.Cart.RemoveItem)

	orders := NewDomainGroup("orders", "/orders").Use(g.Authenticated, store)
	orders.POST("", h.Order.Place)
	orders.GET("", h.Order.List)
	orders.GET("/:id", h.Order.Get)
	orders.POST("/:id/cancel", h.Order.Cancel)
	orders.POST("/:id/pay", h.Order.Pay)
	orders.GET("/:id/invoice", h.Order.Invoice)

	admin := NewDomainGroup("admin", "/admin").
		Use(g.Authenticated, store, middleware.RequireMinRole(identity.RoleAdmin))
	admin.GET("/tenant", h.Tenant.Current)
	admin.PUT("/tenant", h.Tenant.UpdateCurrent)

	adminUsers := admin.Group("users", "/users")
	adminUsers.GET("", h.User.List)
	adminUsers.GET("/:id", h.User.Get)
	adminUsers.PUT("/:id/role", h.User.ChangeRole)
	adminUsers.POST("/:id/disable", h.User.Disable)
	adminUsers.POST("/:id/enable", h.User.Enable)

	adminProducts := admin.Group("products", "/products")
	adminProducts.GET("", h.Product.List)
	adminProducts.GET("/:id", h.Product.Get)
	adminProducts.POST("", h.Product.Create)
	adminProducts.PUT("/:id", h.Product.Update)
	adminProducts.DELETE("/:id", h.Product.Delete)
	adminProducts.POST("/:id/images", h.Product.UploadImage)

	adminOrders := admin.Group("orders", "/orders")
	adminOrders.GET("", h.Order.AdminList)
	adminOrders.GET("/:id", h.Order.AdminGet)
	adminOrders.PUT("/:id/status", h.Order.UpdateStatus)

	adminPlugins := admin.Group("plugins", "/plugins")
	adminPlugins.GET("", h.Plugin.List)
	adminPlugins.POST("", h.Plugin.Install)
	adminPlugins.PUT("/:slug/config", h.Plugin.Configure)
	adminPlugins.POST("/:slug/enable", h.Plugin.Enable)
	adminPlugins.POST("/:slug/disable", h.Plugin.Disable)
	adminPlugins.DELETE("/:slug", h.Plugin.Uninstall)

	platform := NewDomainGroup("platform", "/platform").
		Use(g.Authenticated, middleware.RequireRole(identity.RoleSuperAdmin))
	platform.GET("/tenants", h.Tenant.List)
	platform.GET("/tenants/:id", h.Tenant.Get)
	platform.POST("/tenants/:id/suspend", h.Tenant.Suspend)
	platform.POST("/tenants/:id/activate", h.Tenant.Activate)

	internal := NewDomainGroup("internal", "/internal").
		Use(g.Service, middleware.RequireScope(auth.ScopeOrdersWrite))
	internal.PUT("/orders/:id/status", h.Order.InternalUpdateStatus)

	return []RouteRegistrar{
		system, tenants, authRoutes, storefront, plugins,
		account, cart, orders, admin, platform, internal,
	}
}

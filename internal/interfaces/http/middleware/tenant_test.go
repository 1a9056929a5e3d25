package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	tenants []*identity.Tenant
	err     error
	calls   []string
}

func (r *fakeResolver) find(match func(*identity.Tenant) bool) (*identity.Tenant, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, t := range r.tenants {
		if match(t) {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeResolver) ResolveByID(_ context.Context, id uuid.UUID) (*identity.Tenant, error) {
	r.calls = append(r.calls, "id:"+id.String())
	return r.find(func(t *identity.Tenant) bool { return t.ID == id })
}

func (r *fakeResolver) ResolveBySlug(_ context.Context, slug string) (*identity.Tenant, error) {
	r.calls = append(r.calls, "slug:"+slug)
	return r.find(func(t *identity.Tenant) bool { return t.Slug == slug })
}

func (r *fakeResolver) ResolveByDomain(_ context.Context, host string) (*identity.Tenant, error) {
	r.calls = append(r.calls, "domain:"+host)
	return r.find(func(t *identity.Tenant) bool { return t.Domain == host })
}

func newTestTenant(t *testing.T, slug string) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant(slug, slug+" store", "owner@"+slug+".test")
	require.NoError(t, err)
	return tenant
}

type tenantFixture struct {
	acme      *identity.Tenant
	globex    *identity.Tenant
	suspended *identity.Tenant
	resolver  *fakeResolver
	jwt       *auth.JWTService
}

func newTenantFixture(t *testing.T) *tenantFixture {
	acme := newTestTenant(t, "acme")
	require.NoError(t, acme.SetDomain("shop.acme.test"))
	globex := newTestTenant(t, "globex")
	suspended := newTestTenant(t, "sleepy")
	suspended.Status = identity.TenantStatusSuspended
	return &tenantFixture{
		acme:      acme,
		globex:    globex,
		suspended: suspended,
		resolver:  &fakeResolver{tenants: []*identity.Tenant{acme, globex, suspended}},
		jwt:       newTestJWTService(),
	}
}

func (f *tenantFixture) router(required bool) *gin.Engine {
	router := gin.New()
	router.Use(OptionalJWTAuthMiddleware(JWTMiddlewareConfig{JWTService: f.jwt}))
	router.Use(TenantMiddleware(TenantMiddlewareConfig{
		HeaderEnabled:  true,
		JWTEnabled:     true,
		HostEnabled:    true,
		BaseDomain:     "mall.test",
		PublicPaths:    []string{"/health"},
		PublicPrefixes: []string{"/api/v1/platform/"},
		Required:       required,
		Resolver:       f.resolver,
	}))
	handler := func(c *gin.Context) {
		c.String(http.StatusOK, GetTenantID(c))
	}
	router.GET("/health", handler)
	router.GET("/api/v1/platform/tenants", handler)
	if required {
		router.GET("/api/v1/products", RequireTenant(), handler)
		router.GET("/api/v1/cart", JWTAuthMiddleware(JWTMiddlewareConfig{JWTService: f.jwt}), RequireTenant(), handler)
	} else {
		router.GET("/api/v1/products", handler)
	}
	return router
}

func (f *tenantFixture) token(t *testing.T, tenantID uuid.UUID, role identity.Role) string {
	t.Helper()
	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: tenantID,
		UserID:   uuid.New(),
		Email:    "user@example.com",
		Role:     string(role),
	})
	require.NoError(t, err)
	return BearerPrefix + pair.AccessToken
}

func TestTenantMiddleware_Resolution(t *testing.T) {
	f := newTenantFixture(t)

	tests := []struct {
		name       string
		path       string
		host       string
		header     string
		auth       func(t *testing.T) string
		wantStatus int
		wantTenant string
		wantCode   string
	}{
		{name: "header uuid", header: f.acme.ID.String(), wantStatus: 200, wantTenant: f.acme.ID.String()},
		{name: "header slug", header: "GLOBEX", wantStatus: 200, wantTenant: f.globex.ID.String()},
		{name: "subdomain", host: "acme.mall.test:8080", wantStatus: 200, wantTenant: f.acme.ID.String()},
		{name: "custom domain", host: "SHOP.ACME.TEST", wantStatus: 200, wantTenant: f.acme.ID.String()},
		{name: "jwt claim", auth: func(t *testing.T) string { return f.token(t, f.globex.ID, identity.RoleCustomer) }, wantStatus: 200, wantTenant: f.globex.ID.String()},
		{name: "jwt beats host", host: "acme.mall.test", auth: func(t *testing.T) string { return f.token(t, f.globex.ID, identity.RoleCustomer) }, wantStatus: 200, wantTenant: f.globex.ID.String()},
		{name: "jwt and matching header", header: f.globex.ID.String(), auth: func(t *testing.T) string { return f.token(t, f.globex.ID, identity.RoleAdmin) }, wantStatus: 200, wantTenant: f.globex.ID.String()},
		{name: "jwt and matching slug header", header: "globex", auth: func(t *testing.T) string { return f.token(t, f.globex.ID, identity.RoleAdmin) }, wantStatus: 200, wantTenant: f.globex.ID.String()},
		{name: "jwt and other header", header: f.acme.ID.String(), auth: func(t *testing.T) string { return f.token(t, f.globex.ID, identity.RoleAdmin) }, wantStatus: 403, wantCode: dto.ErrCodeTenantMismatch},
		{name: "jwt and other slug header", header: "acme", auth: func(t *testing.T) string { return f.token(t, f.globex.ID, identity.RoleAdmin) }, wantStatus: 403, wantCode: dto.ErrCodeTenantMismatch},
		{name: "super admin picks any store", header: "acme", auth: func(t *testing.T) string { return f.token(t, f.globex.ID, identity.RoleSuperAdmin) }, wantStatus: 200, wantTenant: f.acme.ID.String()},
		{name: "no candidate", host: "localhost:8080", wantStatus: 400, wantCode: dto.ErrCodeTenantRequired},
		{name: "ip host", host: "127.0.0.1:8080", wantStatus: 400, wantCode: dto.ErrCodeTenantRequired},
		{name: "base domain itself", host: "mall.test", wantStatus: 400, wantCode: dto.ErrCodeTenantRequired},
		{name: "unknown slug", header: "nobody", wantStatus: 404, wantCode: dto.ErrCodeTenantNotFound},
		{name: "suspended", header: "sleepy", wantStatus: 403, wantCode: dto.ErrCodeTenantInactive},
		{name: "public path", path: "/health", wantStatus: 200},
		{name: "public prefix", path: "/api/v1/platform/tenants", header: "nobody", wantStatus: 200},
	}

	router := f.router(true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = "/api/v1/products"
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Host = "localhost"
			if tt.host != "" {
				req.Host = tt.host
			}
			if tt.header != "" {
				req.Header.Set(HeaderTenantID, tt.header)
			}
			if tt.auth != nil {
				req.Header.Set(AuthHeaderKey, tt.auth(t))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
				return
			}
			assert.Equal(t, tt.wantTenant, w.Body.String())
			assert.Equal(t, tt.wantTenant, w.Header().Get(HeaderTenantID))
		})
	}
}

func TestTenantMiddleware_AuthBeforeTenant(t *testing.T) {
	f := newTenantFixture(t)
	router := f.router(true)

	serve := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Host = "localhost"
		if authz != "" {
			req.Header.Set(AuthHeaderKey, authz)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("anonymous without store is unauthorized", func(t *testing.T) {
		w := serve("")
		require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w).Code)
		assert.Empty(t, f.resolver.calls)
	})

	t.Run("garbage token without store is unauthorized", func(t *testing.T) {
		w := serve(BearerPrefix + "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("signed in without store needs a tenant", func(t *testing.T) {
		w := serve(f.token(t, f.globex.ID, identity.RoleSuperAdmin))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeTenantRequired, decodeError(t, w).Code)
	})

	t.Run("signed in customer gets the claim store", func(t *testing.T) {
		w := serve(f.token(t, f.acme.ID, identity.RoleCustomer))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, f.acme.ID.String(), w.Body.String())
	})
}

func TestRequireTenant(t *testing.T) {
	router := gin.New()
	router.GET("/bare", RequireTenant(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/stocked", func(c *gin.Context) {
		SetTenant(c, newTestTenant(t, "acme"))
		c.Next()
	}, RequireTenant(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bare", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeTenantRequired, decodeError(t, w).Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stocked", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTenantMiddleware_Optional(t *testing.T) {
	f := newTenantFixture(t)
	router := f.router(false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Host = "localhost"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, f.resolver.calls)
}

func TestTenantMiddleware_LookupFailure(t *testing.T) {
	f := newTenantFixture(t)
	f.resolver.err = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set(HeaderTenantID, "acme")
	w := httptest.NewRecorder()
	f.router(true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrCodeInternal, decodeError(t, w).Code)
}

func TestTenantMiddleware_ContextPropagation(t *testing.T) {
	f := newTenantFixture(t)
	router := gin.New()
	router.Use(TenantMiddleware(TenantMiddlewareConfig{HeaderEnabled: true, Required: true, Resolver: f.resolver}))
	router.GET("/test", func(c *gin.Context) {
		info := GetTenant(c)
		require.NotNil(t, info)
		assert.Equal(t, "acme", info.Slug)
		assert.Equal(t, f.acme.ID, GetTenantUUID(c))
		assert.Equal(t, f.acme.ID.String(), logger.GetTenantID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderTenantID, f.acme.ID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenantFromHost(t *testing.T) {
	tests := []struct {
		host string
		want tenantRef
	}{
		{"acme.mall.test", tenantRef{slug: "acme"}},
		{"Acme.Mall.Test:443", tenantRef{slug: "acme"}},
		{"eu.acme.mall.test", tenantRef{slug: "eu"}},
		{"www.mall.test", tenantRef{}},
		{"mall.test", tenantRef{}},
		{"shop.example.com", tenantRef{domain: "shop.example.com"}},
		{"localhost:8080", tenantRef{}},
		{"[::1]:8080", tenantRef{}},
		{"10.0.0.5", tenantRef{}},
		{"", tenantRef{}},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, tenantFromHost(tt.host, "mall.test"))
		})
	}
}

func TestParseTenantHeader(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, tenantRef{id: id}, parseTenantHeader(id.String()))
	assert.Equal(t, tenantRef{slug: "acme"}, parseTenantHeader("ACME"))
	assert.Equal(t, tenantRef{slug: "1234-not-a-uuid"}, parseTenantHeader("1234-not-a-uuid"))
}

package middleware

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Tenant context keys
const (
	TenantIDKey    = "tenant_id"
	TenantSlugKey  = "tenant_slug"
	TenantKey      = "tenant"
	HeaderTenantID = "X-Tenant-ID"
)

// TenantInfo holds the resolved tenant of a request
type TenantInfo struct {
	ID     uuid.UUID `json:"id"`
	Slug   string    `json:"slug"`
	Status string    `json:"status"`
}

// TenantResolver looks stores up by the identifiers a request can carry
type TenantResolver interface {
	ResolveByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error)
	ResolveBySlug(ctx context.Context, slug string) (*identity.Tenant, error)
	ResolveByDomain(ctx context.Context, host string) (*identity.Tenant, error)
}

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	HeaderEnabled bool
	// JWTEnabled reads the tenant_id claim; JWT middleware must run first
	JWTEnabled  bool
	HostEnabled bool
	// BaseDomain turns "<slug>.<BaseDomain>" hosts into slug lookups
	BaseDomain     string
	PublicPaths    []string
	PublicPrefixes []string
	Required       bool
	Resolver       TenantResolver
	Logger         *zap.Logger
}

type tenantRef struct {
	id     uuid.UUID
	slug   string
	domain string
}

func (r tenantRef) empty() bool {
	return r.id == uuid.Nil && r.slug == "" && r.domain == ""
}

func (r tenantRef) source() string {
	switch {
	case r.id != uuid.Nil:
		return r.id.String()
	case r.slug != "":
		return r.slug
	}
	return r.domain
}

// TenantMiddleware resolves the store a request addresses.
// Candidate order: JWT claim > X-Tenant-ID header > host.
func TenantMiddleware(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path, cfg.PublicPaths, cfg.PublicPrefixes) {
			c.Next()
			return
		}

		var ref tenantRef
		var fromJWT uuid.UUID
		if cfg.JWTEnabled {
			if claims := GetJWTClaims(c); claims != nil && claims.Role != string(identity.RoleSuperAdmin) {
				if id, err := claims.GetTenantUUID(); err == nil {
					fromJWT = id
					ref.id = id
				}
			}
		}

		// a slug header next to a JWT tenant is compared after resolution
		var headerSlug string
		if cfg.HeaderEnabled {
			if header := strings.TrimSpace(c.GetHeader(HeaderTenantID)); header != "" {
				headerRef := parseTenantHeader(header)
				switch {
				case fromJWT == uuid.Nil:
					ref = headerRef
				case headerRef.id != uuid.Nil && headerRef.id != fromJWT:
					abortWithError(c, dto.ErrCodeTenantMismatch, "Tenant does not match the authenticated user")
					return
				default:
					headerSlug = headerRef.slug
				}
			}
		}

		if ref.empty() && cfg.HostEnabled {
			ref = tenantFromHost(c.Request.Host, cfg.BaseDomain)
		}

		if ref.empty() {
			// anonymous requests go on untenanted: route guards report a
			// missing token before RequireTenant reports a missing store
			if cfg.Required && GetJWTClaims(c) != nil {
				abortWithError(c, dto.ErrCodeTenantRequired, "Tenant identification required")
				return
			}
			c.Next()
			return
		}

		tenant, err := resolveTenant(c.Request.Context(), cfg.Resolver, ref)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				abortWithError(c, dto.ErrCodeTenantNotFound, "Store not found")
				return
			}
			tenantLogger(c, cfg).Error("Tenant lookup failed", zap.String("tenant", ref.source()), zap.Error(err))
			abortWithError(c, dto.ErrCodeInternal, "Internal server error")
			return
		}
		if tenant.Status != identity.TenantStatusActive {
			abortWithError(c, dto.ErrCodeTenantInactive, "Store is not active")
			return
		}
		if headerSlug != "" && tenant.Slug != headerSlug {
			abortWithError(c, dto.ErrCodeTenantMismatch, "Tenant does not match the authenticated user")
			return
		}

		SetTenant(c, tenant)
		c.Next()
	}
}

// RequireTenant rejects requests the tenant middleware left without a store.
// It goes after any authentication guard of the route.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetTenant(c) == nil {
			abortWithError(c, dto.ErrCodeTenantRequired, "Tenant identification required")
			return
		}
		c.Next()
	}
}

// SetTenant decorates the request with a resolved tenant
func SetTenant(c *gin.Context, tenant *identity.Tenant) {
	c.Set(TenantIDKey, tenant.ID.String())
	c.Set(TenantSlugKey, tenant.Slug)
	c.Set(TenantKey, &TenantInfo{ID: tenant.ID, Slug: tenant.Slug, Status: string(tenant.Status)})
	c.Header(HeaderTenantID, tenant.ID.String())

	ctx := c.Request.Context()
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenant.ID.String())
	c.Request = c.Request.WithContext(ctx)
}

func resolveTenant(ctx context.Context, resolver TenantResolver, ref tenantRef) (*identity.Tenant, error) {
	switch {
	case ref.id != uuid.Nil:
		return resolver.ResolveByID(ctx, ref.id)
	case ref.slug != "":
		return resolver.ResolveBySlug(ctx, ref.slug)
	default:
		return resolver.ResolveByDomain(ctx, ref.domain)
	}
}

func tenantLogger(c *gin.Context, cfg TenantMiddlewareConfig) *zap.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return logger.FromContext(c.Request.Context())
}

func isPublicPath(path string, paths, prefixes []string) bool {
	for _, p := range paths {
		if path == p {
			return true
		}
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// parseTenantHeader accepts a UUID or a slug; a malformed UUID is a slug
func parseTenantHeader(v string) tenantRef {
	if id, err := uuid.Parse(v); err == nil {
		return tenantRef{id: id}
	}
	return tenantRef{slug: strings.ToLower(v)}
}

// tenantFromHost maps "acme.shop.example" (base "shop.example") to slug
// "acme" and any other named host to a custom domain lookup
func tenantFromHost(host, baseDomain string) tenantRef {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return tenantRef{}
	}

	base := strings.ToLower(baseDomain)
	if base != "" {
		if host == base || host == "www."+base {
			return tenantRef{}
		}
		if sub, ok := strings.CutSuffix(host, "."+base); ok {
			label, _, _ := strings.Cut(sub, ".")
			return tenantRef{slug: label}
		}
	}
	return tenantRef{domain: host}
}

// GetTenantID retrieves the tenant ID from gin.Context
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}

// GetTenantUUID retrieves the tenant ID as UUID, uuid.Nil when absent
func GetTenantUUID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(GetTenantID(c))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GetTenant returns the resolved tenant, nil for tenantless requests
func GetTenant(c *gin.Context) *TenantInfo {
	if v, ok := c.Get(TenantKey); ok {
		if info, ok := v.(*TenantInfo); ok {
			return info
		}
	}
	return nil
}

package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Service auth keys
const (
	HeaderServiceToken = "X-Service-Token"
	ServiceClaimsKey   = "service_claims"
	RoleService        = "service"
)

// ServiceAuthConfig configures ServiceAuth
type ServiceAuthConfig struct {
	Tokens *auth.ServiceTokenService
	// Resolver confirms the bound tenant exists and is active
	Resolver TenantResolver
	Logger   *zap.Logger
}

// ServiceAuth authenticates internal callers by X-Service-Token and
// installs a synthetic principal with role "service". The tenant comes from
// the token's tenant_id, or from a UUID X-Tenant-ID header when the token is
// not bound to one store.
func ServiceAuth(cfg ServiceAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(HeaderServiceToken))
		if token == "" {
			abortWithError(c, dto.ErrCodeServiceAuth, "Service token required")
			return
		}
		claims, err := cfg.Tokens.Validate(token)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Service token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			}
			abortWithError(c, dto.ErrCodeServiceAuth, "Invalid service token")
			return
		}

		c.Set(ServiceClaimsKey, claims)
		c.Set(JWTRoleKey, RoleService)
		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), "service:"+claims.Service())
		c.Request = c.Request.WithContext(ctx)

		tenantID, bound := claims.TenantUUID()
		if !bound {
			if id, err := uuid.Parse(c.GetHeader(HeaderTenantID)); err == nil {
				tenantID = id
			}
		}
		if tenantID != uuid.Nil && !bindServiceTenant(c, cfg, tenantID) {
			return
		}
		c.Next()
	}
}

func bindServiceTenant(c *gin.Context, cfg ServiceAuthConfig, id uuid.UUID) bool {
	if cfg.Resolver == nil {
		c.Set(TenantIDKey, id.String())
		ctx := c.Request.Context()
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), id.String())
		c.Request = c.Request.WithContext(ctx)
		return true
	}
	tenant, err := cfg.Resolver.ResolveByID(c.Request.Context(), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		abortWithError(c, dto.ErrCodeTenantNotFound, "Store not found")
		return false
	case err != nil:
		logger.FromContext(c.Request.Context()).Error("Tenant lookup failed", zap.String("tenant_id", id.String()), zap.Error(err))
		abortWithError(c, dto.ErrCodeInternal, "Internal server error")
		return false
	case tenant.Status != identity.TenantStatusActive:
		abortWithError(c, dto.ErrCodeTenantInactive, "Store is not active")
		return false
	}
	SetTenant(c, tenant)
	return true
}

// GetServiceClaims returns the service principal, nil for user requests
func GetServiceClaims(c *gin.Context) *auth.ServiceClaims {
	if v, ok := c.Get(ServiceClaimsKey); ok {
		if claims, ok := v.(*auth.ServiceClaims); ok {
			return claims
		}
	}
	return nil
}

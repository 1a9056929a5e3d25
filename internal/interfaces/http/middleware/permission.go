package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Logger *zap.Logger
}

// RequireAuth rejects anonymous requests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetJWTClaims(c) == nil {
			abortWithError(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole lets through users whose role is listed
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return RequireRoleWithConfig(PermissionConfig{}, roles...)
}

// RequireRoleWithConfig is RequireRole with logging of denials
func RequireRoleWithConfig(cfg PermissionConfig, roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		for _, r := range roles {
			if identity.Role(claims.Role) == r {
				c.Next()
				return
			}
		}
		handlePermissionDenied(c, cfg, claims.Role)
	}
}

// RequireMinRole lets through users ranked at or above min
// (customer < admin < super_admin)
func RequireMinRole(min identity.Role) gin.HandlerFunc {
	return RequireMinRoleWithConfig(PermissionConfig{}, min)
}

// RequireMinRoleWithConfig is RequireMinRole with logging of denials
func RequireMinRoleWithConfig(cfg PermissionConfig, min identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !identity.Role(claims.Role).AtLeast(min) {
			handlePermissionDenied(c, cfg, claims.Role)
			return
		}
		c.Next()
	}
}

// RequireScope checks the scopes of a service principal. Requests that did
// not pass ServiceAuth are rejected as unauthenticated.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetServiceClaims(c)
		if claims == nil {
			abortWithError(c, dto.ErrCodeServiceAuth, "Service token required")
			return
		}
		if !claims.HasScope(scope) {
			abortWithError(c, dto.ErrCodeInsufficientScope, "Service token lacks scope "+scope)
			return
		}
		c.Next()
	}
}

func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, role string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Permission denied",
			zap.String("user_id", GetJWTUserID(c)),
			zap.String("role", role),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}
	abortWithError(c, dto.ErrCodeForbidden, "Permission denied")
}

// HasMinRole reports whether the caller ranks at or above min
func HasMinRole(c *gin.Context, min identity.Role) bool {
	claims := GetJWTClaims(c)
	return claims != nil && identity.Role(claims.Role).AtLeast(min)
}

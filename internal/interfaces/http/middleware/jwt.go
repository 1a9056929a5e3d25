package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	JWTRoleKey    = "jwt_role"
	JWTEmailKey   = "jwt_email"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional for checking revoked tokens
	TokenBlacklist auth.TokenBlacklist
	Logger         *zap.Logger
}

// JWTAuthMiddleware requires a valid access token. Routes behind it have
// usually passed OptionalJWTAuthMiddleware already, in which case the
// claims it stored are reused.
func JWTAuthMiddleware(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetJWTClaims(c) != nil {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !authenticate(c, cfg, token) {
			return
		}
		c.Next()
	}
}

// OptionalJWTAuthMiddleware decorates the request when a bearer token is
// present. Requests without one pass through anonymously; a token that is
// present but invalid is rejected.
func OptionalJWTAuthMiddleware(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		if !authenticate(c, cfg, token) {
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// authenticate validates the token, checks revocation and stores the claims.
// It aborts the request and returns false on failure.
func authenticate(c *gin.Context, cfg JWTMiddlewareConfig, token string) bool {
	claims, err := cfg.JWTService.ValidateAccessToken(token)
	if err != nil {
		handleAuthError(c, cfg, err)
		return false
	}

	if cfg.TokenBlacklist != nil {
		ctx := c.Request.Context()

		if claims.ID != "" {
			blacklisted, err := cfg.TokenBlacklist.IsBlacklisted(ctx, claims.ID)
			if err != nil {
				// fail open
				logWarn(cfg, "Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
			} else if blacklisted {
				handleAuthError(c, cfg, auth.ErrTokenBlacklisted)
				return false
			}
		}

		invalidated, err := cfg.TokenBlacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
		if err != nil {
			logWarn(cfg, "Failed to check user token invalidation", zap.String("user_id", claims.UserID), zap.Error(err))
		} else if invalidated {
			handleAuthError(c, cfg, auth.ErrTokenBlacklisted)
			return false
		}
	}

	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTRoleKey, claims.Role)
	c.Set(JWTEmailKey, claims.Email)

	ctx := c.Request.Context()
	ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
	c.Request = c.Request.WithContext(ctx)
	return true
}

func logWarn(cfg JWTMiddlewareConfig, msg string, fields ...zap.Field) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, fields...)
	}
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Debug("JWT authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, message := dto.ErrCodeTokenInvalid, "Invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidTokenType):
		code, message = dto.ErrCodeTokenType, "Invalid token type"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "Token is not yet valid"
	}
	abortWithError(c, code, message)
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetRole returns the caller's role: the JWT role for users, "service" for
// service principals, empty when anonymous
func GetRole(c *gin.Context) string {
	return c.GetString(JWTRoleKey)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// withRole installs claims for role, or none when role is empty
func withRole(role identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role != "" {
			c.Set(JWTClaimsKey, &auth.Claims{UserID: uuid.NewString(), Role: string(role)})
			c.Set(JWTRoleKey, string(role))
		}
		c.Next()
	}
}

func TestRoleGates(t *testing.T) {
	tests := []struct {
		name       string
		gate       gin.HandlerFunc
		role       identity.Role
		wantStatus int
		wantCode   string
	}{
		{"auth anonymous", RequireAuth(), "", 401, dto.ErrCodeUnauthorized},
		{"auth customer", RequireAuth(), identity.RoleCustomer, 200, ""},
		{"role listed", RequireRole(identity.RoleAdmin, identity.RoleSuperAdmin), identity.RoleAdmin, 200, ""},
		{"role not listed", RequireRole(identity.RoleAdmin), identity.RoleCustomer, 403, dto.ErrCodeForbidden},
		{"role exact only", RequireRole(identity.RoleAdmin), identity.RoleSuperAdmin, 403, dto.ErrCodeForbidden},
		{"role anonymous", RequireRole(identity.RoleCustomer), "", 401, dto.ErrCodeUnauthorized},
		{"min role equal", RequireMinRole(identity.RoleAdmin), identity.RoleAdmin, 200, ""},
		{"min role above", RequireMinRole(identity.RoleAdmin), identity.RoleSuperAdmin, 200, ""},
		{"min role below", RequireMinRole(identity.RoleAdmin), identity.RoleCustomer, 403, dto.ErrCodeForbidden},
		{"min role unknown", RequireMinRole(identity.RoleCustomer), identity.Role("guest"), 403, dto.ErrCodeForbidden},
		{"min role anonymous", RequireMinRole(identity.RoleCustomer), "", 401, dto.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/test", withRole(tt.role), tt.gate, func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			}
		})
	}
}

func TestRequireRoleWithConfig_LogsDenial(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	router := gin.New()
	router.GET("/admin", withRole(identity.RoleCustomer),
		RequireMinRoleWithConfig(PermissionConfig{Logger: zap.New(core)}, identity.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	entries := logs.FilterMessage("Permission denied").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "customer", entries[0].ContextMap()["role"])
		assert.Equal(t, "/admin", entries[0].ContextMap()["path"])
	}
}

func TestRequireScope(t *testing.T) {
	withScopes := func(scopes ...string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if scopes != nil {
				c.Set(ServiceClaimsKey, &auth.ServiceClaims{Scopes: scopes})
			}
			c.Next()
		}
	}

	tests := []struct {
		name       string
		scopes     []string
		wantStatus int
	}{
		{"exact scope", []string{auth.ScopeOrdersWrite}, 200},
		{"resource wildcard", []string{"orders:*"}, 200},
		{"global wildcard", []string{auth.ScopeAll}, 200},
		{"other scope", []string{auth.ScopeOrdersRead}, 403},
		{"no service principal", nil, 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/test", withScopes(tt.scopes...), RequireScope(auth.ScopeOrdersWrite), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestHasMinRole(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, HasMinRole(c, identity.RoleCustomer))

	c.Set(JWTClaimsKey, &auth.Claims{Role: string(identity.RoleAdmin)})
	assert.True(t, HasMinRole(c, identity.RoleAdmin))
	assert.False(t, HasMinRole(c, identity.RoleSuperAdmin))
}

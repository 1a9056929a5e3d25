package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Profiling labels CPU and allocation samples taken while serving the
// request with its route, method and tenant, so profiles can be sliced per
// endpoint
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		labels := []string{"route", getRoutePattern(c), "method", c.Request.Method}
		if tenantID := GetTenantID(c); tenantID != "" {
			labels = append(labels, "tenant_id", tenantID)
		}
		pyroscope.TagWrapper(c.Request.Context(), pyroscope.Labels(labels...), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

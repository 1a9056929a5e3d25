package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
)

// unmatchedRoute labels requests that hit no route, keeping label
// cardinality bounded
const unmatchedRoute = "unmatched"

// HTTPMetrics records request count, latency and concurrency. A nil metrics
// set yields a pass-through middleware.
func HTTPMetrics(m *telemetry.HTTPMetrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		c.Next()

		route := getRoutePattern(c)
		method := c.Request.Method
		m.Requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.Duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// getRoutePattern returns the matched route template ("/api/v1/products/:id")
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jiffoo/mall/internal/interfaces/http/dto"
)

// RouteBodyLimit overrides the body cap for one route template,
// e.g. "/api/v1/admin/products/:id/images"
type RouteBodyLimit struct {
	Route    string
	MaxBytes int64
}

// BodyLimit caps request bodies at maxBytes unless the matched route has its
// own limit. Declared lengths are rejected up front; chunked bodies fail on read.
func BodyLimit(maxBytes int64, overrides ...RouteBodyLimit) gin.HandlerFunc {
	perRoute := make(map[string]int64, len(overrides))
	for _, o := range overrides {
		perRoute[o.Route] = o.MaxBytes
	}

	return func(c *gin.Context) {
		limit := maxBytes
		if n, ok := perRoute[c.FullPath()]; ok {
			limit = n
		}
		if limit <= 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			abortWithError(c, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

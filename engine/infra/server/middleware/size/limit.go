package size

import (
	"net/http"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/gin-gonic/gin"
)

// BodySizeLimiter caps request bodies at limit bytes. Requests that declare
// a larger Content-Length are rejected before the handler runs; bodies
// without a declared length fail on read with *http.MaxBytesError. A
// non-positive limit disables the check.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			router.RespondWithError(c, http.StatusRequestEntityTooLarge, router.ErrPayloadTooLargeCode,
				"request body too large", map[string]any{"limit_bytes": limit})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

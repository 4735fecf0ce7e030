package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodySize bounds request bodies on the control API. Every request it
// accepts is a small JSON object.
const MaxBodySize = 16 * 1024

// BodyLimit rejects bodies larger than maxBytes. Declared lengths are checked
// up front; chunked bodies fail while being read.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
				"code":  "too_large",
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

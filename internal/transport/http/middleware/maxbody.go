package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"caseworker-tasks/internal/transport/http/response"
)

// MaxBodyBytes rejects declared oversize bodies up front and caps the
// rest while they are read.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	if n <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			response.FailStatus(c, http.StatusRequestEntityTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

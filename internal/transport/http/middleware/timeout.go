package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/transport/http/response"
)

// Timeout bounds the request context. The repositories hand it to the
// database, so a slow query is cancelled rather than left running.
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			response.Fail(c, apperr.Timeout("Request timed out"))
		}
	}
}

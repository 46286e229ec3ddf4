package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caseworker-tasks/internal/transport/http/response"
)

const KeyRequestID = response.KeyRequestID

// RequestID echoes the caller's X-Request-ID or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}

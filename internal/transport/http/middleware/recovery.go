package middleware

import (
	"fmt"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/transport/http/response"
)

// Recovery logs the panic with its stack and renders a 500 envelope.
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, rec any) {
		response.Fail(c, apperr.Internal("Internal Server Error", fmt.Errorf("panic: %v", rec)))
	})
}

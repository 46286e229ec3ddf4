package middleware

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog writes one line per request, tagged with the request id and
// the caller once known. skip lists exact paths to leave out.
func AccessLog(l *zap.Logger, skip ...string) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(l.Named("http"), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  skip,
		Context: func(c *gin.Context) []zapcore.Field {
			fields := []zapcore.Field{
				zap.String("rid", c.GetString(KeyRequestID)),
				zap.String("route", c.FullPath()),
			}
			if uid := UserID(c); uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}
			return fields
		},
	})
}

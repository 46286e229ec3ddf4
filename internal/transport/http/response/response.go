// Package response renders the JSON envelope shared by every endpoint:
// {"success":true,"data":...} or {"success":false,"error":{...}}.
package response

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"caseworker-tasks/internal/apperr"
)

const (
	keyLogger      = "response.logger"
	keyExposeStack = "response.exposeStack"
	// KeyRequestID is where the request id middleware stores the id.
	KeyRequestID = "X-Request-ID"
)

type ErrorBody struct {
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Setup stores what Fail needs on every request. exposeStack is false in
// production.
func Setup(l *zap.Logger, exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(keyLogger, l)
		c.Set(keyExposeStack, exposeStack)
		c.Next()
	}
}

func logger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(keyLogger); ok {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.NewNop()
}

func OK(c *gin.Context, status int, data any) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail renders err and aborts the chain. Errors that are not *apperr.Error
// become a generic 500; internal errors are logged with their cause.
func Fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := &ErrorBody{Message: Message(status)}

	if ae, ok := apperr.As(err); ok {
		status = ae.Kind.Status()
		if ae.Msg != "" {
			body.Message = ae.Msg
		} else {
			body.Message = Message(status)
		}
		body.Details = ae.Details
	}
	if status == http.StatusInternalServerError && errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		body.Message = Message(status)
	}
	if status >= http.StatusInternalServerError {
		logger(c).Error("request failed",
			zap.String("rid", c.GetString(KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	if c.GetBool(keyExposeStack) {
		body.Stack = causeChain(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: body})
}

// causeChain lists err and each error it wraps, one per line. A link
// whose message repeats the previous one is skipped.
func causeChain(err error) string {
	var (
		b    strings.Builder
		prev string
	)
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if msg == prev {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\ncaused by: ")
		}
		b.WriteString(msg)
		prev = msg
	}
	return b.String()
}

// FailStatus renders a bare status with its default message.
func FailStatus(c *gin.Context, status int) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &ErrorBody{Message: Message(status)}})
}

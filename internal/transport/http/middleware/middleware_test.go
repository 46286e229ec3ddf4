package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/domain"
	"caseworker-tasks/internal/transport/http/response"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() { gin.SetMode(gin.TestMode) }

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(response.Setup(zap.NewNop(), false))
	r.Use(mw...)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	return env.Error.Message
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(KeyRequestID))
	assert.Equal(t, w.Header().Get(KeyRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Body.String())

	req.Header.Set(KeyRequestID, strings.Repeat("x", 200))
	w = serve(r, req)
	assert.Len(t, w.Body.String(), 36)
}

func TestAuthJWT(t *testing.T) {
	j := auth.NewJWTer(testSecret, "", time.Hour)
	r := newEngine(AuthJWT(j))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })

	good, err := j.Issue("user-1")
	require.NoError(t, err)

	old := auth.NewJWTer(testSecret, "", time.Hour)
	old.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := old.Issue("user-1")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, "Access token required"},
		{"wrong scheme", "Basic " + good, http.StatusUnauthorized, "Access token required"},
		{"blank", "Bearer   ", http.StatusUnauthorized, "Access token required"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.msg, errMessage(t, w))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	roles := map[string]domain.Role{"a": domain.RoleAdmin, "c": domain.RoleCaseworker}
	lookup := func(_ context.Context, id string) (domain.Role, error) {
		r, ok := roles[id]
		if !ok {
			return "", apperr.Unauthorized("User not found")
		}
		return r, nil
	}
	r := newEngine(func(c *gin.Context) {
		c.Set(KeyUserID, c.Query("uid"))
		c.Next()
	}, RequireRole(lookup, domain.RoleAdmin))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/?uid=a", nil)).Code)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/?uid=c", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", errMessage(t, w))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/?uid=gone", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(rate.Every(time.Hour), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", errMessage(t, w))
}

func TestRateLimitPerIP(t *testing.T) {
	r := newEngine(RateLimitPerIP(rate.Every(time.Hour), 1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2"))
}

func TestLimitsDisabled(t *testing.T) {
	r := newEngine(
		RateLimit(0, 0),
		RateLimitPerIP(0, 0, time.Minute),
		ConcurrencyLimit(0),
		MaxBodyBytes(0),
		Timeout(0),
	)
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := newEngine(MaxBodyBytes(8))
	r.POST("/", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				response.FailStatus(c, http.StatusRequestEntityTooLarge)
				return
			}
			response.FailStatus(c, http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// no declared length, caught while reading
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`))
	req.ContentLength = -1
	w = serve(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestConcurrencyLimit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := newEngine(ConcurrencyLimit(1))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	done := make(chan int)
	go func() { done <- serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code }()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w := serve(r, httptest.NewRequest(http.MethodGet, "/fast", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestTimeout(t *testing.T) {
	r := newEngine(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "Request timed out", errMessage(t, w))

	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", errMessage(t, w))
}

func TestMetricsAndAccessLog(t *testing.T) {
	r := newEngine(RequestID(), Metrics(), AccessLog(zap.NewNop(), "/skip"))
	r.GET("/tasks/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/tasks/1", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil)).Code)
}

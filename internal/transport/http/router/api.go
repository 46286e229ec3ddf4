package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/core/config"
	"caseworker-tasks/internal/core/server"
	"caseworker-tasks/internal/feature/admin"
	authfeat "caseworker-tasks/internal/feature/auth"
	"caseworker-tasks/internal/feature/task"
	"caseworker-tasks/internal/service"
	mdw "caseworker-tasks/internal/transport/http/middleware"
	"caseworker-tasks/internal/transport/http/response"
)

// Deps is everything the engines need; main builds it once.
type Deps struct {
	Log   *zap.Logger
	App   config.App
	JWT   *auth.JWTer
	Users *service.UserService
	Tasks *service.TaskService
	// Now overrides the clock used for the due date rule.
	Now func() time.Time
}

func (d Deps) registry() *Registry {
	reg := &Registry{}
	reg.Register(
		authfeat.Module{Users: d.Users, JWT: d.JWT},
		task.Module{Tasks: d.Tasks, JWT: d.JWT, Now: d.Now},
		admin.Module{Users: d.Users, Tasks: d.Tasks},
	)
	return reg
}

// base builds an engine with the shared middleware chain and the
// unauthenticated probes.
func base(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	h := d.App.HTTP
	r := server.NewRouter(server.Options{
		Name:        d.App.Name,
		Production:  d.App.Production(),
		CORSOrigins: h.CORSOrigins,
	})
	r.Use(
		mdw.RequestID(),
		response.Setup(d.Log, !d.App.Production()),
		mdw.Recovery(d.Log),
		mdw.Metrics(),
		mdw.AccessLog(d.Log, "/health", "/metrics"),
		mdw.RateLimit(rate.Limit(h.RateLimitRPS), h.RateLimitBurst),
		mdw.RateLimitPerIP(rate.Limit(h.PerIPRPS), h.PerIPBurst, 10*time.Minute),
		mdw.ConcurrencyLimit(h.MaxConcurrent),
		mdw.MaxBodyBytes(h.MaxBodyBytes),
		mdw.Timeout(time.Duration(h.RequestTimeoutSec)*time.Second),
	)

	env := d.App.Env
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
			"environment": env,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, apperr.NotFound("Route "+c.Request.URL.Path+" not found"))
	})
	return r
}

// NewAPIEngine serves /api for caseworkers.
func NewAPIEngine(d Deps) *gin.Engine {
	r := base(d)
	d.registry().MountAPI(r.Group("/api"))
	return r
}

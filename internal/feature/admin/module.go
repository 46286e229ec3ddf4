// Package admin mounts read-only oversight endpoints for supervisors and
// admins. The engine guards the whole group with a role check.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"caseworker-tasks/internal/domain"
	"caseworker-tasks/internal/service"
	"caseworker-tasks/internal/transport/http/ez"
)

type Module struct {
	Users *service.UserService
	Tasks *service.TaskService
}

type listIn struct {
	Page  int `form:"page,default=1" validate:"min=1" msg:"Page must be >= 1"`
	Limit int `form:"limit,default=20" validate:"min=1,max=100" msg:"Limit must be between 1 and 100"`
}

type userStatsOut struct {
	User  *domain.PublicUser `json:"user"`
	Stats *domain.TaskStats  `json:"stats"`
}

func (m Module) MountAdmin(admin *gin.RouterGroup) {
	ez.Register(admin, ez.Action[listIn, *service.UserPage]{
		Method:    http.MethodGet,
		Path:      "/users",
		Binder:    ez.BindQuery,
		BindError: "Invalid pagination parameters. Page must be >= 1, limit must be between 1 and 100",
		Handler: func(c *gin.Context, in *listIn) (*service.UserPage, error) {
			return m.Users.List(c.Request.Context(), in.Page, in.Limit)
		},
	})

	ez.Register(admin, ez.Action[struct{}, userStatsOut]{
		Method: http.MethodGet,
		Path:   "/users/:id/stats",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (userStatsOut, error) {
			ctx := c.Request.Context()
			u, err := m.Users.GetProfile(ctx, c.Param("id"))
			if err != nil {
				return userStatsOut{}, err
			}
			st, err := m.Tasks.Stats(ctx, u.ID)
			if err != nil {
				return userStatsOut{}, err
			}
			return userStatsOut{User: u, Stats: st}, nil
		},
	})
}

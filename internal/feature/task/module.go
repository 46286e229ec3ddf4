// Package task mounts the owner-scoped task endpoints under /tasks.
package task

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/domain"
	"caseworker-tasks/internal/service"
	"caseworker-tasks/internal/transport/http/ez"
	mdw "caseworker-tasks/internal/transport/http/middleware"
)

const msgBadPagination = "Invalid pagination parameters. Page must be >= 1, limit must be between 1 and 100"

type Module struct {
	Tasks *service.TaskService
	JWT   *auth.JWTer
	// Now is used for the future due date rule; defaults to time.Now.
	Now func() time.Time
}

func (Module) Priority() int { return 20 }

func (m Module) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

type createIn struct {
	Title       string            `json:"title" validate:"required,max=255" msg:"Title must be between 1 and 255 characters" msg_required:"Title is required"`
	Description *string           `json:"description" validate:"omitempty,max=1000" msg:"Description must not exceed 1000 characters"`
	Status      domain.TaskStatus `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED" msg:"Status must be one of: PENDING, IN_PROGRESS, COMPLETED, CANCELLED"`
	DueDate     *string           `json:"dueDate" validate:"omitempty,iso8601" msg:"Due date must be a valid ISO 8601 date"`

	now     time.Time
	dueDate *time.Time
}

func (in *createIn) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
}

// Check runs once the tags pass, so DueDate is known to parse.
func (in *createIn) Check() []apperr.FieldError {
	if in.DueDate == nil {
		return nil
	}
	t, err := ez.ParseTime(*in.DueDate)
	if err != nil {
		return []apperr.FieldError{{Field: "dueDate", Message: "Due date must be a valid ISO 8601 date"}}
	}
	if !t.After(in.now) {
		return []apperr.FieldError{{Field: "dueDate", Message: "Due date must be in the future"}}
	}
	in.dueDate = &t
	return nil
}

// updateIn distinguishes an absent or null dueDate (leave it) from an
// empty string (clear it).
type updateIn struct {
	Title       *string            `json:"title" validate:"omitempty,min=1,max=255" msg:"Title must be between 1 and 255 characters"`
	Description *string            `json:"description" validate:"omitempty,max=1000" msg:"Description must not exceed 1000 characters"`
	Status      *domain.TaskStatus `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED" msg:"Status must be one of: PENDING, IN_PROGRESS, COMPLETED, CANCELLED"`
	DueDate     *string            `json:"dueDate"`

	dueDate   *time.Time
	clearDate bool
}

func (in *updateIn) Normalize() {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
}

func (in *updateIn) Check() []apperr.FieldError {
	if in.DueDate == nil {
		return nil
	}
	if strings.TrimSpace(*in.DueDate) == "" {
		in.clearDate = true
		return nil
	}
	t, err := ez.ParseTime(*in.DueDate)
	if err != nil {
		return []apperr.FieldError{{Field: "dueDate", Message: "Due date must be a valid ISO 8601 date"}}
	}
	in.dueDate = &t
	return nil
}

type listIn struct {
	Page   int    `form:"page,default=1" validate:"min=1" msg:"Page must be >= 1"`
	Limit  int    `form:"limit,default=10" validate:"min=1,max=100" msg:"Limit must be between 1 and 100"`
	Status string `form:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED" msg:"Status must be one of: PENDING, IN_PROGRESS, COMPLETED, CANCELLED"`
}

func (in *listIn) Normalize() { in.Status = strings.TrimSpace(in.Status) }

type deleteOut struct {
	Message string `json:"message"`
}

func (m Module) MountAPI(api *gin.RouterGroup) {
	g := api.Group("/tasks", mdw.AuthJWT(m.JWT))

	ez.Register(g, ez.Action[listIn, *service.TaskPage]{
		Method:    http.MethodGet,
		Path:      "",
		Binder:    ez.BindQuery,
		BindError: msgBadPagination,
		Handler: func(c *gin.Context, in *listIn) (*service.TaskPage, error) {
			q := service.ListTasksInput{Page: in.Page, Limit: in.Limit}
			if in.Status != "" {
				st := domain.TaskStatus(in.Status)
				q.Status = &st
			}
			return m.Tasks.List(c.Request.Context(), mdw.UserID(c), q)
		},
	})

	ez.Register(g, ez.Action[struct{}, *domain.TaskStats]{
		Method: http.MethodGet,
		Path:   "/stats",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.TaskStats, error) {
			return m.Tasks.Stats(c.Request.Context(), mdw.UserID(c))
		},
	})

	ez.Register(g, ez.Action[struct{}, *domain.Task]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Task, error) {
			return m.Tasks.GetByID(c.Request.Context(), c.Param("id"), mdw.UserID(c))
		},
	})

	ez.Register(g, ez.Action[createIn, *domain.Task]{
		Method:  http.MethodPost,
		Path:    "",
		Binder:  ez.BindJSON,
		Status:  http.StatusCreated,
		Prepare: func(_ *gin.Context, in *createIn) { in.now = m.now() },
		Handler: func(c *gin.Context, in *createIn) (*domain.Task, error) {
			return m.Tasks.Create(c.Request.Context(), service.CreateTaskInput{
				Title:       in.Title,
				Description: in.Description,
				Status:      in.Status,
				DueDate:     in.dueDate,
			}, mdw.UserID(c))
		},
	})

	ez.Register(g, ez.Action[updateIn, *domain.Task]{
		Method: http.MethodPut,
		Path:   "/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *updateIn) (*domain.Task, error) {
			return m.Tasks.Update(c.Request.Context(), c.Param("id"), service.UpdateTaskInput{
				Title:        in.Title,
				Description:  in.Description,
				Status:       in.Status,
				DueDate:      in.dueDate,
				ClearDueDate: in.clearDate,
			}, mdw.UserID(c))
		},
	})

	ez.Register(g, ez.Action[struct{}, deleteOut]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (deleteOut, error) {
			if err := m.Tasks.Delete(c.Request.Context(), c.Param("id"), mdw.UserID(c)); err != nil {
				return deleteOut{}, err
			}
			return deleteOut{Message: "Task deleted successfully"}, nil
		},
	})
}

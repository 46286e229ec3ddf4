// Package auth mounts registration, login and the caller's profile.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	coreauth "caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/domain"
	"caseworker-tasks/internal/service"
	"caseworker-tasks/internal/transport/http/ez"
	mdw "caseworker-tasks/internal/transport/http/middleware"
)

type Module struct {
	Users *service.UserService
	JWT   *coreauth.JWTer
}

func (Module) Priority() int { return 10 }

type registerIn struct {
	Name     string      `json:"name" validate:"required,min=2,max=50" msg:"Name must be between 2 and 50 characters" msg_required:"Name is required"`
	Email    string      `json:"email" validate:"required,email" msg:"Please provide a valid email address" msg_required:"Email is required"`
	Password string      `json:"password" validate:"required,min=6,password" msg_required:"Password is required" msg_min:"Password must be at least 6 characters long" msg_password:"Password must contain at least one lowercase letter, one uppercase letter, and one number"`
	Role     domain.Role `json:"role" validate:"omitempty,oneof=caseworker supervisor admin" msg:"Role must be one of: caseworker, supervisor, admin"`
}

func (in *registerIn) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

type loginIn struct {
	Email    string `json:"email" validate:"required,email" msg:"Please provide a valid email address" msg_required:"Email is required"`
	Password string `json:"password" validate:"required" msg:"Password is required"`
}

func (in *loginIn) Normalize() { in.Email = strings.ToLower(strings.TrimSpace(in.Email)) }

type profileIn struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=50" msg:"Name must be between 2 and 50 characters"`
	Email *string `json:"email" validate:"omitempty,email" msg:"Please provide a valid email address"`
}

func (in *profileIn) Normalize() {
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &e
	}
}

func (m Module) MountAPI(api *gin.RouterGroup) {
	g := api.Group("/auth")

	ez.Register(g, ez.Action[registerIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerIn) (*service.AuthResult, error) {
			return m.Users.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Email: in.Email, Password: in.Password, Role: in.Role,
			})
		},
	})

	ez.Register(g, ez.Action[loginIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (*service.AuthResult, error) {
			return m.Users.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	authed := g.Group("", mdw.AuthJWT(m.JWT))

	ez.Register(authed, ez.Action[struct{}, *domain.PublicUser]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.PublicUser, error) {
			return m.Users.GetProfile(c.Request.Context(), mdw.UserID(c))
		},
	})

	ez.Register(authed, ez.Action[profileIn, *domain.PublicUser]{
		Method: http.MethodPut,
		Path:   "/profile",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *profileIn) (*domain.PublicUser, error) {
			return m.Users.UpdateProfile(c.Request.Context(), mdw.UserID(c), service.ProfileInput{
				Name: in.Name, Email: in.Email,
			})
		},
	})
}

package router

import (
	"github.com/gin-gonic/gin"

	"caseworker-tasks/internal/domain"
	mdw "caseworker-tasks/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin/v1. Every route needs a token whose user
// currently holds the admin or supervisor role.
func NewAdminEngine(d Deps) *gin.Engine {
	r := base(d)
	g := r.Group("/admin/v1",
		mdw.AuthJWT(d.JWT),
		mdw.RequireRole(d.Users.Role, domain.RoleAdmin, domain.RoleSupervisor),
	)
	d.registry().MountAdmin(g)
	return r
}

package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/domain"
	"caseworker-tasks/internal/transport/http/response"
)

const KeyUserID = "userId"

// UserID is the authenticated user, empty outside AuthJWT.
func UserID(c *gin.Context) string { return c.GetString(KeyUserID) }

func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		tok, ok := strings.CutPrefix(ah, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			response.Fail(c, apperr.Unauthorized("Access token required"))
			return
		}
		uid, err := j.UserID(strings.TrimSpace(tok))
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "Token expired"
			}
			response.Fail(c, apperr.Unauthorized(msg))
			return
		}
		c.Set(KeyUserID, uid)
		c.Next()
	}
}

// RoleLookup resolves a user's current role.
type RoleLookup func(ctx context.Context, userID string) (domain.Role, error)

// RequireRole must run after AuthJWT. The role is read from the store on
// each request rather than trusted from the token.
func RequireRole(lookup RoleLookup, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := lookup(c.Request.Context(), UserID(c))
		if err != nil {
			response.Fail(c, err)
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Fail(c, apperr.Forbidden("Insufficient permissions"))
	}
}

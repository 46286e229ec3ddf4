// Package ez registers typed gin handlers: bind, validate, call, render.
package ez

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/transport/http/response"
)

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none"
)

// Action describes one endpoint. I is the bound input, O the data
// rendered on success.
type Action[I any, O any] struct {
	Method string
	Path   string
	Binder Binder

	// Status on success; 200 when zero.
	Status int

	// BindError replaces the default message when the input cannot be
	// decoded at all, e.g. a non-integer page number.
	BindError string

	// Prepare runs between binding and validation.
	Prepare func(c *gin.Context, in *I)

	Handler func(c *gin.Context, in *I) (O, error)
}

// Register mounts a on g.
func Register[I any, O any](g gin.IRoutes, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			var mbe *http.MaxBytesError
			if errors.As(bindErr, &mbe) {
				response.FailStatus(c, http.StatusRequestEntityTooLarge)
				return
			}
			msg := a.BindError
			if msg == "" {
				msg = "Invalid request body"
			}
			response.Fail(c, apperr.Validation(msg))
			return
		}
		if a.Prepare != nil {
			a.Prepare(c, &in)
		}
		if a.Binder != BindNone {
			if err := Validate(&in); err != nil {
				response.Fail(c, err)
				return
			}
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			response.Fail(c, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		response.OK(c, status, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		g.GET(a.Path, h)
	case http.MethodPut:
		g.PUT(a.Path, h)
	case http.MethodPatch:
		g.PATCH(a.Path, h)
	case http.MethodDelete:
		g.DELETE(a.Path, h)
	case http.MethodPost:
		g.POST(a.Path, h)
	default:
		panic("ez: unsupported method " + strconv.Quote(a.Method) + " for " + a.Path)
	}
}

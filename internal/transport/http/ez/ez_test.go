package ez

import (
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

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/transport/http/response"
)

type signupIn struct {
	Name     string `json:"name" validate:"required,min=2" msg:"Name is too short" msg_required:"Name is required"`
	Password string `json:"password" validate:"required,password" msg_password:"Password is weak"`
	Tag      string `json:"tag" validate:"omitempty,oneof=a b"`
	When     string `json:"when" validate:"omitempty,iso8601"`

	checked bool
}

func (in *signupIn) Normalize() { in.Name = strings.TrimSpace(in.Name) }

func (in *signupIn) Check() []apperr.FieldError {
	in.checked = true
	if in.Name == "root" {
		return []apperr.FieldError{{Field: "name", Message: "Name is reserved"}}
	}
	return nil
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	ae, ok := apperr.As(err)
	require.True(t, ok, "want *apperr.Error, got %v", err)
	require.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "Validation failed", ae.Msg)
	out := map[string]string{}
	for _, d := range ae.Details {
		out[d.Field] = d.Message
	}
	return out
}

func TestValidateMessages(t *testing.T) {
	in := &signupIn{Name: "  ", Password: "abc", Tag: "z", When: "soon"}
	d := details(t, Validate(in))

	assert.Equal(t, "Name is required", d["name"])
	assert.Equal(t, "Password is weak", d["password"])
	assert.Equal(t, "tag must be one of: a, b", d["tag"])
	assert.Equal(t, "when must be a valid ISO 8601 date", d["when"])
	assert.False(t, in.checked, "Check only runs once the tags pass")
}

func TestValidateFallsBackToMsgTag(t *testing.T) {
	d := details(t, Validate(&signupIn{Name: "x", Password: "Abc123"}))
	assert.Equal(t, "Name is too short", d["name"])
}

func TestValidateRunsCheck(t *testing.T) {
	in := &signupIn{Name: " root ", Password: "Abc123"}
	d := details(t, Validate(in))
	assert.True(t, in.checked)
	assert.Equal(t, "Name is reserved", d["name"])

	in = &signupIn{Name: "Ann", Password: "Abc123", When: "2025-01-02"}
	assert.NoError(t, Validate(in))
	assert.True(t, in.checked)
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, StrongPassword("Abc123"))
	assert.False(t, StrongPassword("abc123"))
	assert.False(t, StrongPassword("ABC123"))
	assert.False(t, StrongPassword("Abcdef"))
}

func TestParseTime(t *testing.T) {
	cases := map[string]time.Time{
		"2025-06-01T12:30:00Z":      time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		"2025-06-01T12:30:00.5Z":    time.Date(2025, 6, 1, 12, 30, 0, 500_000_000, time.UTC),
		"2025-06-01T14:30:00+02:00": time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		"2025-06-01T12:30:00":       time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		"2025-06-01T12:30":          time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		"2025-06-01":                time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}
	for _, bad := range []string{"", "tomorrow", "06/01/2025", "2025-13-01"} {
		_, err := ParseTime(bad)
		assert.Error(t, err, bad)
	}
}

type pageIn struct {
	Page int `form:"page,default=1" validate:"min=1" msg:"Page must be >= 1"`
}

type echoOut struct {
	Name string `json:"name"`
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(response.Setup(nil, false))

	Register(r, Action[signupIn, echoOut]{
		Method: http.MethodPost,
		Path:   "/signup",
		Binder: BindJSON,
		Status: http.StatusCreated,
		Handler: func(_ *gin.Context, in *signupIn) (echoOut, error) {
			if in.Name == "taken" {
				return echoOut{}, apperr.Conflict("Name is taken")
			}
			return echoOut{Name: in.Name}, nil
		},
	})
	Register(r, Action[pageIn, int]{
		Method:    http.MethodGet,
		Path:      "/page",
		Binder:    BindQuery,
		BindError: "Bad page",
		Handler:   func(_ *gin.Context, in *pageIn) (int, error) { return in.Page, nil },
	})
	Register(r, Action[struct{}, string]{
		Method: http.MethodDelete,
		Path:   "/boom",
		Binder: BindNone,
		Handler: func(*gin.Context, *struct{}) (string, error) {
			return "", errors.New("disk on fire")
		},
	})
	return r
}

func call(r http.Handler, method, target, body string) (int, response.Envelope, json.RawMessage) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	var env response.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	_ = json.Unmarshal(w.Body.Bytes(), &raw)
	return w.Code, env, raw.Data
}

func TestRegisterJSON(t *testing.T) {
	r := newRouter()

	code, env, data := call(r, http.MethodPost, "/signup", `{"name":" Ann ","password":"Abc123"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"name":"Ann"}`, string(data))

	code, env, _ = call(r, http.MethodPost, "/signup", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", env.Error.Message)

	code, env, _ = call(r, http.MethodPost, "/signup", `{"name":"A","password":"Abc123"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "name", env.Error.Details[0].Field)

	code, env, _ = call(r, http.MethodPost, "/signup", `{"name":"taken","password":"Abc123"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Name is taken", env.Error.Message)
}

func TestRegisterQuery(t *testing.T) {
	r := newRouter()

	code, _, data := call(r, http.MethodGet, "/page", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1", string(data))

	code, _, data = call(r, http.MethodGet, "/page?page=3", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "3", string(data))

	code, env, _ := call(r, http.MethodGet, "/page?page=x", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Bad page", env.Error.Message)

	code, env, _ = call(r, http.MethodGet, "/page?page=0", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Page must be >= 1", env.Error.Details[0].Message)
}

func TestRegisterHidesPlainErrors(t *testing.T) {
	code, env, _ := call(newRouter(), http.MethodDelete, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error", env.Error.Message)
	assert.NotContains(t, env.Error.Message, "disk")
}

func TestRegisterRejectsUnknownMethod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, m := range []string{"", "FETCH", "HEAD"} {
		assert.PanicsWithValue(t, "ez: unsupported method \""+m+"\" for /x", func() {
			Register(gin.New(), Action[struct{}, string]{Method: m, Path: "/x", Binder: BindNone})
		}, m)
	}

	// method names are case-insensitive
	r := gin.New()
	r.Use(response.Setup(nil, false))
	Register(r, Action[struct{}, string]{
		Method:  "post",
		Path:    "/x",
		Binder:  BindNone,
		Handler: func(*gin.Context, *struct{}) (string, error) { return "ok", nil },
	})
	code, _, data := call(r, http.MethodPost, "/x", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `"ok"`, string(data))
}

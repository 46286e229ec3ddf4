package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/core/config"
	"caseworker-tasks/internal/domain"
	"caseworker-tasks/internal/repo"
	"caseworker-tasks/internal/service"
	"caseworker-tasks/internal/testutil"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
		Stack string `json:"stack"`
	} `json:"error"`
}

type APISuite struct {
	suite.Suite
	db    *gorm.DB
	deps  Deps
	api   *gin.Engine
	admin *gin.Engine
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = testutil.NewDB(s.T())
	jwt := auth.NewJWTer("0123456789abcdef0123456789abcdef", "caseworker-tasks", 0)
	s.deps = Deps{
		App:   config.App{Name: "caseworker-tasks", Env: "production"},
		JWT:   jwt,
		Users: service.NewUserService(repo.NewUserRepo(s.db), &auth.Hasher{Cost: bcrypt.MinCost}, jwt, nil),
		Tasks: service.NewTaskService(repo.NewTaskRepo(s.db), nil),
		Now:   func() time.Time { return fixedNow },
	}
	s.api = NewAPIEngine(s.deps)
	s.admin = NewAdminEngine(s.deps)
}

func (s *APISuite) do(e *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *APISuite) register(email string) (token, id string) {
	w, env := s.do(s.api, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Case Worker", "email": email, "password": "Secret1",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	return out.Token, out.User.ID
}

func (s *APISuite) createTask(token string, body gin.H) domain.Task {
	w, env := s.do(s.api, http.MethodPost, "/api/tasks", token, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var t domain.Task
	s.Require().NoError(json.Unmarshal(env.Data, &t))
	return t
}

func (s *APISuite) TestHealth() {
	w, _ := s.do(s.api, http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	var h map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &h))
	s.Equal("OK", h["status"])
	s.Equal("production", h["environment"])
	s.NotEmpty(h["timestamp"])
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *APISuite) TestUnknownRoute() {
	w, env := s.do(s.api, http.MethodGet, "/api/nope", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.False(env.Success)
	s.Equal("Route /api/nope not found", env.Error.Message)
}

func (s *APISuite) TestRegisterLoginProfile() {
	token, id := s.register("ann@example.com")

	w, env := s.do(s.api, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ANN@example.com", "password": "Secret1"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(env.Success)
	s.NotContains(string(env.Data), "password")

	w, env = s.do(s.api, http.MethodGet, "/api/auth/profile", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var p domain.PublicUser
	s.Require().NoError(json.Unmarshal(env.Data, &p))
	s.Equal(id, p.ID)
	s.Equal(domain.RoleCaseworker, p.Role)

	w, env = s.do(s.api, http.MethodPut, "/api/auth/profile", token, gin.H{"name": "Ann Smith"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &p))
	s.Equal("Ann Smith", p.Name)
}

func (s *APISuite) TestRegisterValidation() {
	w, env := s.do(s.api, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "A", "email": "not-an-email", "password": "weakpw",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Validation failed", env.Error.Message)
	s.Empty(env.Error.Stack, "no stack in production")

	msgs := map[string]string{}
	for _, d := range env.Error.Details {
		msgs[d.Field] = d.Message
	}
	s.Equal("Name must be between 2 and 50 characters", msgs["name"])
	s.Equal("Please provide a valid email address", msgs["email"])
	s.Equal("Password must contain at least one lowercase letter, one uppercase letter, and one number", msgs["password"])
}

func (s *APISuite) TestRegisterDuplicateAndBadLogin() {
	s.register("ann@example.com")
	w, env := s.do(s.api, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann", "email": "ann@example.com", "password": "Secret1",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("User with this email already exists", env.Error.Message)

	w, env = s.do(s.api, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ann@example.com", "password": "Wrong1x"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Invalid email or password", env.Error.Message)
}

func (s *APISuite) TestTokenRequired() {
	w, env := s.do(s.api, http.MethodGet, "/api/tasks", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(env.Success)
	s.Equal("Access token required", env.Error.Message)

	w, _ = s.do(s.api, http.MethodGet, "/api/tasks", "garbage", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestTaskLifecycle() {
	token, id := s.register("ann@example.com")

	t := s.createTask(token, gin.H{"title": "  Home visit ", "description": "bring forms", "dueDate": "2025-07-01T09:00:00Z"})
	s.Equal("Home visit", t.Title)
	s.Equal(domain.TaskPending, t.Status)
	s.Equal(id, t.UserID)
	s.Require().NotNil(t.DueDate)

	w, env := s.do(s.api, http.MethodGet, "/api/tasks/"+t.ID, token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w, env = s.do(s.api, http.MethodPut, "/api/tasks/"+t.ID, token, gin.H{"status": "IN_PROGRESS", "dueDate": ""})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var got domain.Task
	s.Require().NoError(json.Unmarshal(env.Data, &got))
	s.Equal(domain.TaskInProgress, got.Status)
	s.Nil(got.DueDate)
	s.Equal("Home visit", got.Title)

	w, env = s.do(s.api, http.MethodDelete, "/api/tasks/"+t.ID, token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"Task deleted successfully"}`, string(env.Data))

	w, env = s.do(s.api, http.MethodGet, "/api/tasks/"+t.ID, token, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Task not found", env.Error.Message)
}

func (s *APISuite) TestCrossUserIsNotFound() {
	ann, _ := s.register("ann@example.com")
	bob, _ := s.register("bob@example.com")
	t := s.createTask(ann, gin.H{"title": "Private"})

	for _, tc := range []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPut, gin.H{"title": "Mine"}},
		{http.MethodDelete, nil},
	} {
		w, env := s.do(s.api, tc.method, "/api/tasks/"+t.ID, bob, tc.body)
		s.Equal(http.StatusNotFound, w.Code, tc.method)
		s.Equal("Task not found", env.Error.Message)
	}
}

func (s *APISuite) TestCreateRejectsPastDueDate() {
	token, _ := s.register("ann@example.com")
	w, env := s.do(s.api, http.MethodPost, "/api/tasks", token, gin.H{"title": "Late", "dueDate": "2025-05-31T12:00:00Z"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Require().Len(env.Error.Details, 1)
	s.Equal("dueDate", env.Error.Details[0].Field)
	s.Equal("Due date must be in the future", env.Error.Details[0].Message)

	w, env = s.do(s.api, http.MethodPost, "/api/tasks", token, gin.H{"title": "Odd", "dueDate": "next tuesday"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Due date must be a valid ISO 8601 date", env.Error.Details[0].Message)

	w, env = s.do(s.api, http.MethodPost, "/api/tasks", token, gin.H{"title": "   "})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Title is required", env.Error.Details[0].Message)
}

func (s *APISuite) TestListPaginationAndFilters() {
	token, _ := s.register("ann@example.com")
	s.createTask(token, gin.H{"title": "one", "status": "PENDING"})
	s.createTask(token, gin.H{"title": "two", "status": "IN_PROGRESS"})
	s.createTask(token, gin.H{"title": "three", "status": "COMPLETED"})

	w, env := s.do(s.api, http.MethodGet, "/api/tasks?page=1&limit=2", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page service.TaskPage
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Len(page.Tasks, 2)
	s.Equal(service.Pagination{Page: 1, Limit: 2, Total: 3, Pages: 2}, page.Pagination)

	w, env = s.do(s.api, http.MethodGet, "/api/tasks?status=COMPLETED", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Len(page.Tasks, 1)
	s.Equal(service.Pagination{Page: 1, Limit: 10, Total: 1, Pages: 1}, page.Pagination)

	for _, q := range []string{"page=0", "limit=0", "limit=101", "page=abc", "status=DONE"} {
		w, env = s.do(s.api, http.MethodGet, "/api/tasks?"+q, token, nil)
		s.Equal(http.StatusBadRequest, w.Code, q)
		s.False(env.Success, q)
	}
}

func (s *APISuite) TestStats() {
	token, _ := s.register("ann@example.com")
	s.createTask(token, gin.H{"title": "one", "status": "PENDING"})
	s.createTask(token, gin.H{"title": "two", "status": "IN_PROGRESS"})
	s.createTask(token, gin.H{"title": "three", "status": "COMPLETED"})

	w, env := s.do(s.api, http.MethodGet, "/api/tasks/stats", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"total":3,"pending":1,"inProgress":1,"completed":1,"cancelled":0}`, string(env.Data))
}

func (s *APISuite) TestAdminRequiresRole() {
	cw, _ := s.register("cw@example.com")
	w, env := s.do(s.admin, http.MethodGet, "/admin/v1/users", cw, nil)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("Insufficient permissions", env.Error.Message)

	w, _ = s.do(s.admin, http.MethodGet, "/admin/v1/users", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestAdminListsUsersAndStats() {
	w, env := s.do(s.api, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Sam Supervisor", "email": "sam@example.com", "password": "Secret1", "role": "supervisor",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	var sup service.AuthResult
	s.Require().NoError(json.Unmarshal(env.Data, &sup))

	cw, cwID := s.register("cw@example.com")
	s.createTask(cw, gin.H{"title": "one"})

	w, env = s.do(s.admin, http.MethodGet, "/admin/v1/users?limit=1", sup.Token, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var users service.UserPage
	s.Require().NoError(json.Unmarshal(env.Data, &users))
	s.Len(users.Users, 1)
	s.Equal(int64(2), users.Pagination.Total)

	w, env = s.do(s.admin, http.MethodGet, "/admin/v1/users/"+cwID+"/stats", sup.Token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var out struct {
		Stats domain.TaskStats `json:"stats"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Equal(int64(1), out.Stats.Total)

	w, _ = s.do(s.admin, http.MethodGet, "/admin/v1/users/missing/stats", sup.Token, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func TestRegistryPriority(t *testing.T) {
	var order []string
	reg := &Registry{}
	reg.Register(mod{"late", 50, &order}, mod{"early", 1, &order}, struct{}{})
	gin.SetMode(gin.TestMode)
	reg.MountAPI(gin.New().Group("/"))
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Fatalf("mount order = %v", order)
	}
}

type mod struct {
	name  string
	prio  int
	order *[]string
}

func (m mod) Priority() int                { return m.prio }
func (m mod) MountAPI(_ *gin.RouterGroup) { *m.order = append(*m.order, m.name) }

package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/core/cache"
	"caseworker-tasks/internal/domain"
	"caseworker-tasks/pkg/utils"
)

const msgTaskNotFound = "Task not found"

type CreateTaskInput struct {
	Title       string
	Description *string
	Status      domain.TaskStatus
	DueDate     *time.Time
}

// UpdateTaskInput only touches non-nil fields. ClearDueDate sets the due
// date to null and wins over DueDate.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *domain.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
}

type ListTasksInput struct {
	Page   int
	Limit  int
	Status *domain.TaskStatus
}

type TaskPage struct {
	Tasks      []domain.Task `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

// StatsCache is the subset of cache.Cache the task service uses.
type StatsCache interface {
	cache.Loader
	Generation(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) error
}

type TaskService struct {
	tasks    domain.TaskRepository
	stats    StatsCache
	statsTTL time.Duration
	log      *zap.Logger
}

type TaskOption func(*TaskService)

// WithStatsCache serves Stats through c for ttl. Mutations bump the
// owner's generation, which retires every entry stored under the old one.
func WithStatsCache(c StatsCache, ttl time.Duration) TaskOption {
	return func(s *TaskService) {
		s.stats = c
		s.statsTTL = ttl
	}
}

func NewTaskService(tasks domain.TaskRepository, log *zap.Logger, opts ...TaskOption) *TaskService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &TaskService{tasks: tasks, log: log.Named("tasks")}
	for _, o := range opts {
		o(s)
	}
	return s
}

func statsKey(userID string) string { return "stats:" + userID }

func statsGenKey(userID string, gen int64) string {
	return statsKey(userID) + ":" + strconv.FormatInt(gen, 10)
}

func (s *TaskService) invalidate(ctx context.Context, userID string) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Bump(ctx, statsKey(userID)); err != nil {
		s.log.Warn("stats cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *TaskService) Create(ctx context.Context, in CreateTaskInput, userID string) (*domain.Task, error) {
	status := in.Status
	if status == "" {
		status = domain.TaskPending
	}
	t := &domain.Task{
		ID:          utils.NewID(),
		Title:       strings.TrimSpace(in.Title),
		Description: cleanDescription(in.Description),
		Status:      status,
		DueDate:     in.DueDate,
		UserID:      userID,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, apperr.Internal("Failed to create task", err)
	}
	s.invalidate(ctx, userID)
	return t, nil
}

// List runs the page query and the count concurrently. They do not share
// a snapshot, so a concurrent write can make total disagree with the page.
func (s *TaskService) List(ctx context.Context, userID string, in ListTasksInput) (*TaskPage, error) {
	page, limit := clampPage(in.Page, in.Limit)

	var (
		tasks []domain.Task
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = s.tasks.Find(gctx, domain.TaskFilter{
			UserID: userID,
			Status: in.Status,
			Offset: (page - 1) * limit,
			Limit:  limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.tasks.Count(gctx, userID, in.Status)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("Failed to fetch tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return &TaskPage{Tasks: tasks, Pagination: newPagination(page, limit, total)}, nil
}

func (s *TaskService) GetByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	t, err := s.tasks.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch task", err)
	}
	if t == nil {
		return nil, apperr.NotFound(msgTaskNotFound)
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, id string, in UpdateTaskInput, userID string) (*domain.Task, error) {
	const failMsg = "Failed to update task"
	existing, err := s.tasks.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if existing == nil {
		return nil, apperr.NotFound(msgTaskNotFound)
	}

	fields := map[string]any{"updated_at": time.Now()}
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = cleanDescription(in.Description)
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	switch {
	case in.ClearDueDate:
		fields["due_date"] = nil
	case in.DueDate != nil:
		fields["due_date"] = *in.DueDate
	}

	if err := s.tasks.UpdateFields(ctx, id, userID, fields); err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	s.invalidate(ctx, userID)

	t, err := s.tasks.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if t == nil {
		// deleted between the update and the read-back
		return nil, apperr.NotFound(msgTaskNotFound)
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id, userID string) error {
	const failMsg = "Failed to delete task"
	existing, err := s.tasks.FindOwned(ctx, id, userID)
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	if existing == nil {
		return apperr.NotFound(msgTaskNotFound)
	}
	n, err := s.tasks.DeleteOwned(ctx, id, userID)
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	if n == 0 {
		return apperr.NotFound(msgTaskNotFound)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *TaskService) Stats(ctx context.Context, userID string) (*domain.TaskStats, error) {
	var (
		st  *domain.TaskStats
		err error
	)
	if gen, ok := s.statsGeneration(ctx, userID); ok {
		st, err = cache.GetOrLoadJSON(s.stats, ctx, statsGenKey(userID, gen), s.statsTTL, func(ctx context.Context) (*domain.TaskStats, error) {
			return s.countStats(ctx, userID)
		})
	} else {
		st, err = s.countStats(ctx, userID)
	}
	if err != nil {
		return nil, apperr.Internal("Failed to fetch task statistics", err)
	}
	return st, nil
}

// statsGeneration reads the generation before any count runs, so a load
// racing a mutation stores under the generation the mutation retires.
func (s *TaskService) statsGeneration(ctx context.Context, userID string) (int64, bool) {
	if s.stats == nil {
		return 0, false
	}
	gen, err := s.stats.Generation(ctx, statsKey(userID))
	if err != nil {
		s.log.Debug("stats cache generation unavailable", zap.String("user_id", userID), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// countStats issues the five counts concurrently; total is its own query,
// not the sum of the others.
func (s *TaskService) countStats(ctx context.Context, userID string) (*domain.TaskStats, error) {
	var st domain.TaskStats
	targets := []struct {
		status *domain.TaskStatus
		dst    *int64
	}{
		{nil, &st.Total},
		{statusPtr(domain.TaskPending), &st.Pending},
		{statusPtr(domain.TaskInProgress), &st.InProgress},
		{statusPtr(domain.TaskCompleted), &st.Completed},
		{statusPtr(domain.TaskCancelled), &st.Cancelled},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, tg := range targets {
		g.Go(func() error {
			n, err := s.tasks.Count(gctx, userID, tg.status)
			if err != nil {
				return err
			}
			*tg.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

// cleanDescription trims d; blank descriptions are stored as null.
func cleanDescription(d *string) *string {
	if d == nil {
		return nil
	}
	t := strings.TrimSpace(*d)
	if t == "" {
		return nil
	}
	return &t
}

func statusPtr(s domain.TaskStatus) *domain.TaskStatus { return &s }

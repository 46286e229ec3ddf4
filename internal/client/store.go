package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"caseworker-tasks/internal/domain"
)

const DefaultPageSize = 10

// TaskAPI is the part of Client the store needs.
type TaskAPI interface {
	ListTasks(ctx context.Context, q ListQuery) (*TaskPage, error)
	CreateTask(ctx context.Context, in NewTask) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, in TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// State is a copy of what the store currently shows.
type State struct {
	Tasks        []domain.Task
	CurrentPage  int
	TotalPages   int
	TotalTasks   int64
	PageSize     int
	StatusFilter domain.TaskStatus
	// LastError is the message of the most recent failed call, cleared by
	// the next successful one.
	LastError string
}

// TaskStore keeps one page of the caller's tasks plus the paging and
// filter settings that produced it. Changing the page size or filter goes
// back to page 1. Methods are safe for concurrent use; the lock is not held
// across network calls.
type TaskStore struct {
	api TaskAPI

	mu sync.Mutex
	st State
}

func NewTaskStore(api TaskAPI) *TaskStore {
	return &TaskStore{
		api: api,
		st:  State{CurrentPage: 1, TotalPages: 1, PageSize: DefaultPageSize},
	}
}

func (s *TaskStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.st
	out.Tasks = append([]domain.Task(nil), s.st.Tasks...)
	return out
}

func (s *TaskStore) fail(err error) error {
	s.mu.Lock()
	s.st.LastError = err.Error()
	var ae *APIError
	if errors.As(err, &ae) {
		s.st.LastError = ae.Message
	}
	s.mu.Unlock()
	return err
}

// Refresh fetches the current page with the current filter.
func (s *TaskStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	q := ListQuery{Page: s.st.CurrentPage, Limit: s.st.PageSize, Status: s.st.StatusFilter}
	s.mu.Unlock()

	page, err := s.api.ListTasks(ctx, q)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// settings changed while the call was in flight; a newer refresh wins
	if q.Page != s.st.CurrentPage || q.Limit != s.st.PageSize || q.Status != s.st.StatusFilter {
		return nil
	}
	s.st.Tasks = page.Tasks
	s.st.TotalPages = page.Pagination.Pages
	s.st.TotalTasks = page.Pagination.Total
	s.st.LastError = ""
	return nil
}

// resetPage moves to page 1 and reports whether that changed anything.
func (s *TaskStore) resetPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.CurrentPage == 1 {
		return false
	}
	s.st.CurrentPage = 1
	return true
}

// CreateTask adds a PENDING task, shows it first and returns to page 1.
func (s *TaskStore) CreateTask(ctx context.Context, title, description string) (*domain.Task, error) {
	in := NewTask{Title: strings.TrimSpace(title), Status: domain.TaskPending}
	if d := strings.TrimSpace(description); d != "" {
		in.Description = &d
	}
	t, err := s.api.CreateTask(ctx, in)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.st.Tasks = append([]domain.Task{*t}, s.st.Tasks...)
	s.st.LastError = ""
	s.mu.Unlock()

	if s.resetPage() {
		return t, s.Refresh(ctx)
	}
	return t, nil
}

func (s *TaskStore) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	return s.update(ctx, id, TaskUpdate{Status: &status})
}

// UpdateContent replaces the title and description; a blank description
// is left as it was.
func (s *TaskStore) UpdateContent(ctx context.Context, id, title, description string) (*domain.Task, error) {
	t := strings.TrimSpace(title)
	in := TaskUpdate{Title: &t}
	if d := strings.TrimSpace(description); d != "" {
		in.Description = &d
	}
	return s.update(ctx, id, in)
}

func (s *TaskStore) update(ctx context.Context, id string, in TaskUpdate) (*domain.Task, error) {
	t, err := s.api.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, s.fail(err)
	}
	s.mu.Lock()
	for i := range s.st.Tasks {
		if s.st.Tasks[i].ID == id {
			s.st.Tasks[i] = *t
		}
	}
	s.st.LastError = ""
	s.mu.Unlock()
	return t, nil
}

// Delete removes the task and returns to page 1.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	kept := s.st.Tasks[:0:0]
	for _, t := range s.st.Tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.st.Tasks = kept
	s.st.LastError = ""
	s.mu.Unlock()

	if s.resetPage() {
		return s.Refresh(ctx)
	}
	return nil
}

func (s *TaskStore) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.st.CurrentPage = page
	s.mu.Unlock()
	return s.Refresh(ctx)
}

func (s *TaskStore) SetPageSize(ctx context.Context, size int) error {
	if size < 1 {
		size = DefaultPageSize
	}
	s.mu.Lock()
	s.st.PageSize = size
	s.st.CurrentPage = 1
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetStatusFilter narrows the list to one status; "" shows all.
func (s *TaskStore) SetStatusFilter(ctx context.Context, status domain.TaskStatus) error {
	s.mu.Lock()
	s.st.StatusFilter = status
	s.st.CurrentPage = 1
	s.mu.Unlock()
	return s.Refresh(ctx)
}

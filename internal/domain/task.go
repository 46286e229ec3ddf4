package domain

import (
	"context"
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskCompleted, TaskCancelled}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// NextActions is the progression a client offers for a task in status s.
// The service accepts any status on update; this is presentation only.
func (s TaskStatus) NextActions() []TaskStatus {
	switch s {
	case TaskPending:
		return []TaskStatus{TaskInProgress, TaskCancelled}
	case TaskInProgress:
		return []TaskStatus{TaskCompleted, TaskCancelled}
	case TaskCancelled:
		return []TaskStatus{TaskPending}
	default:
		return nil
	}
}

type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description *string    `gorm:"size:1000" json:"description"`
	Status      TaskStatus `gorm:"size:16;not null;default:PENDING;index:idx_tasks_user_status,priority:2" json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	UserID      string     `gorm:"size:36;not null;index:idx_tasks_user_status,priority:1;index:idx_tasks_user_created,priority:1" json:"userId"`
	CreatedAt   time.Time  `gorm:"index:idx_tasks_user_created,priority:2" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Task) TableName() string { return "tasks" }

type TaskFilter struct {
	UserID string
	Status *TaskStatus
	Offset int
	Limit  int
}

type TaskStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

// TaskRepository scopes every lookup by owner; a task owned by someone
// else is reported exactly like a missing one: (nil, nil) or 0 rows.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	FindOwned(ctx context.Context, id, userID string) (*Task, error)
	Find(ctx context.Context, f TaskFilter) ([]Task, error)
	Count(ctx context.Context, userID string, status *TaskStatus) (int64, error)
	UpdateFields(ctx context.Context, id, userID string, fields map[string]any) error
	DeleteOwned(ctx context.Context, id, userID string) (int64, error)
}

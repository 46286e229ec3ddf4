package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"caseworker-tasks/internal/domain"
)

// TaskRepo puts user_id into every statement, so a task owned by someone
// else behaves as if it did not exist.
type TaskRepo struct{ db *gorm.DB }

var _ domain.TaskRepository = (*TaskRepo)(nil)

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *TaskRepo) FindOwned(ctx context.Context, id, userID string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) scoped(ctx context.Context, userID string, status *domain.TaskStatus) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	return q
}

// Find returns one page, newest first. id breaks ties between tasks
// created in the same instant.
func (r *TaskRepo) Find(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	tasks := []domain.Task{}
	q := r.scoped(ctx, f.UserID, f.Status).Order("created_at desc").Order("id desc")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) Count(ctx context.Context, userID string, status *domain.TaskStatus) (int64, error) {
	var n int64
	err := r.scoped(ctx, userID, status).Count(&n).Error
	return n, err
}

func (r *TaskRepo) UpdateFields(ctx context.Context, id, userID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields).Error
	return translate(err)
}

func (r *TaskRepo) DeleteOwned(ctx context.Context, id, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Task{})
	return res.RowsAffected, res.Error
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles CRUD for tasks.
// Instants are written in UTC and read back in calendar.Zone.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// ListAll returns every task, newest first.
func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return fromStore(tasks), nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	row := toStore(*task)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateByID changes only the supplied columns.
func (r *TaskRepository) UpdateByID(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			v = t.UTC()
		}
		values[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	task = fromStore([]model.Task{task})[0]
	return &task, nil
}

// ListByDate returns tasks whose deadline falls on day's civil date.
func (r *TaskRepository) ListByDate(ctx context.Context, day time.Time) ([]model.Task, error) {
	start := calendar.DateOnly(day)
	end := calendar.NextDay(day)
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("deadline >= ? AND deadline < ?", start.UTC(), end.UTC()).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by date: %w", err)
	}
	return fromStore(tasks), nil
}

// ListRepeating returns tasks that carry repeat days.
func (r *TaskRepository) ListRepeating(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("repeat_days IS NOT NULL").
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list repeating tasks: %w", err)
	}
	return fromStore(tasks), nil
}

func toStore(task model.Task) model.Task {
	row := task.Clone()
	row.CreatedAt = row.CreatedAt.UTC()
	if row.Deadline != nil {
		d := row.Deadline.UTC()
		row.Deadline = &d
	}
	if row.CompletedAt != nil {
		c := row.CompletedAt.UTC()
		row.CompletedAt = &c
	}
	return row
}

func fromStore(tasks []model.Task) []model.Task {
	for i := range tasks {
		t := &tasks[i]
		t.CreatedAt = t.CreatedAt.In(calendar.Zone)
		if t.Deadline != nil {
			d := t.Deadline.In(calendar.Zone)
			t.Deadline = &d
		}
		if t.CompletedAt != nil {
			c := t.CompletedAt.In(calendar.Zone)
			t.CompletedAt = &c
		}
	}
	return tasks
}

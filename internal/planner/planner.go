// Package planner owns the in-memory task collection and applies the
// day-bucket, rollover and recurrence rules to it.
package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/metrics"
	"daily-tasks/internal/model"
)

// Store is the persistence collaborator.
type Store interface {
	ListAll(ctx context.Context) ([]model.Task, error)
	Insert(ctx context.Context, task *model.Task) error
	UpdateByID(ctx context.Context, id string, fields map[string]any) error
	DeleteByID(ctx context.Context, id string) error
}

// Input represents data required to create a task.
type Input struct {
	Title       string
	Description string
	Priority    model.Priority
	Deadline    *time.Time
	RepeatDays  model.Weekdays
}

// Patch lists the fields an update changes; nil fields are left as they are.
type Patch struct {
	Title         *string
	Description   *string
	Priority      *model.Priority
	Status        *model.Status
	Deadline      *time.Time
	ClearDeadline bool
	RepeatDays    *model.Weekdays
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Planner) { p.log = log }
}

// WithClock overrides the source of "now" for user edits.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Planner) { p.newID = fn }
}

// Planner is the single writer of the task collection.
//
// User edits are persisted first and applied only when the store accepts them.
// Rollover and recurrence are applied optimistically: a failed store call is
// logged and the in-memory change is kept until the next Load.
type Planner struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	tasks []model.Task
}

func New(store Store, opts ...Option) *Planner {
	p := &Planner{
		store: store,
		log:   zerolog.Nop(),
		now:   calendar.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the collection with the store's contents.
func (p *Planner) Load(ctx context.Context) error {
	tasks, err := p.store.ListAll(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list").Inc()
		return fmt.Errorf("load tasks: %w", err)
	}
	p.mu.Lock()
	p.tasks = tasks
	p.mu.Unlock()
	p.log.Info().Int("tasks", len(tasks)).Msg("tasks loaded")
	return nil
}

// Tasks returns a copy of the whole collection, newest first.
func (p *Planner) Tasks() []model.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneAll(p.tasks)
}

// ForDay returns the day bucket for day.
func (p *Planner) ForDay(day time.Time) []model.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneAll(SelectForDay(p.tasks, day))
}

// Find returns the task with the given id.
func (p *Planner) Find(id string) (model.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return model.Task{}, ErrTaskNotFound
	}
	return p.tasks[i].Clone(), nil
}

// Add validates input, persists a new pending task and prepends it to the collection.
func (p *Planner) Add(ctx context.Context, in Input) (model.Task, error) {
	in, err := validateInput(in)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:          p.newID(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      model.StatusPending,
		Deadline:    in.Deadline,
		CreatedAt:   p.now(),
		RepeatDays:  in.RepeatDays,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Insert(ctx, &task); err != nil {
		metrics.StoreErrors.WithLabelValues("insert").Inc()
		p.log.Error().Err(err).Str("title", task.Title).Msg("add task")
		return model.Task{}, err
	}
	p.tasks = append([]model.Task{task}, p.tasks...)
	return task.Clone(), nil
}

// Update applies a partial change. ID and CreatedAt are never modified.
func (p *Planner) Update(ctx context.Context, id string, patch Patch) (model.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.update(ctx, id, patch)
}

// Toggle flips a task between pending and completed.
func (p *Planner) Toggle(ctx context.Context, id string) (model.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(id)
	if i < 0 {
		return model.Task{}, ErrTaskNotFound
	}
	next := model.StatusCompleted
	if p.tasks[i].Status == model.StatusCompleted {
		next = model.StatusPending
	}
	return p.update(ctx, id, Patch{Status: &next})
}

func (p *Planner) update(ctx context.Context, id string, patch Patch) (model.Task, error) {
	i := p.indexOf(id)
	if i < 0 {
		return model.Task{}, ErrTaskNotFound
	}
	updated, fields, err := applyPatch(p.tasks[i], patch, p.now())
	if err != nil {
		return model.Task{}, err
	}
	if len(fields) == 0 {
		return updated.Clone(), nil
	}
	if err := p.store.UpdateByID(ctx, id, fields); err != nil {
		metrics.StoreErrors.WithLabelValues("update").Inc()
		p.log.Error().Err(err).Str("task", id).Msg("update task")
		return model.Task{}, err
	}
	p.tasks[i] = updated
	return updated.Clone(), nil
}

// Delete removes a task from the store and the collection.
func (p *Planner) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	if err := p.store.DeleteByID(ctx, id); err != nil {
		metrics.StoreErrors.WithLabelValues("delete").Inc()
		p.log.Error().Err(err).Str("task", id).Msg("delete task")
		return err
	}
	p.tasks = append(p.tasks[:i], p.tasks[i+1:]...)
	return nil
}

// Rollover moves today's pending tasks to tomorrow and returns how many moved.
func (p *Planner) Rollover(ctx context.Context, now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rollover(ctx, now)
}

// GenerateRecurrences creates today's instances of recurring tasks and returns them.
func (p *Planner) GenerateRecurrences(ctx context.Context, now time.Time) []model.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneAll(p.generate(ctx, now))
}

// RunDaily performs the midnight job: rollover first, then recurrence.
func (p *Planner) RunDaily(ctx context.Context, now time.Time) (moved int, created []model.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()

	moved = p.rollover(ctx, now)
	created = cloneAll(p.generate(ctx, now))
	metrics.DailyRuns.Inc()
	p.log.Info().
		Str("day", calendar.FormatDate(now)).
		Int("rolled_over", moved).
		Int("generated", len(created)).
		Msg("daily run finished")
	return moved, created
}

func (p *Planner) rollover(ctx context.Context, now time.Time) int {
	updated, moved := RollPendingToTomorrow(p.tasks, now)
	p.tasks = updated
	for _, task := range moved {
		p.log.Debug().Str("task", task.ID).Str("title", task.Title).Time("deadline", *task.Deadline).Msg("rolled over")
		if err := p.store.UpdateByID(ctx, task.ID, map[string]any{"deadline": *task.Deadline}); err != nil {
			metrics.StoreErrors.WithLabelValues("update").Inc()
			p.log.Error().Err(err).Str("task", task.ID).Msg("persist rollover")
		}
	}
	metrics.Rollovers.Add(float64(len(moved)))
	return len(moved)
}

func (p *Planner) generate(ctx context.Context, now time.Time) []model.Task {
	created := GenerateDueRecurrences(p.tasks, now, p.newID)
	for i := range created {
		task := created[i]
		p.log.Info().Str("task", task.ID).Str("title", task.Title).Str("day", calendar.FormatDate(now)).Msg("recurring task created")
		if err := p.store.Insert(ctx, &task); err != nil {
			metrics.StoreErrors.WithLabelValues("insert").Inc()
			p.log.Error().Err(err).Str("task", task.ID).Msg("persist recurring task")
		}
	}
	if len(created) > 0 {
		prepend := make([]model.Task, 0, len(created)+len(p.tasks))
		for i := len(created) - 1; i >= 0; i-- {
			prepend = append(prepend, created[i])
		}
		p.tasks = append(prepend, p.tasks...)
	}
	metrics.RecurrencesGenerated.Add(float64(len(created)))
	return created
}

func (p *Planner) indexOf(id string) int {
	for i := range p.tasks {
		if p.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func validateInput(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, ErrEmptyTitle
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return in, ErrInvalidPriority
	}
	if err := in.RepeatDays.Validate(); err != nil {
		return in, fmt.Errorf("%w: %v", ErrInvalidWeekday, err)
	}
	if len(in.RepeatDays) == 0 {
		in.RepeatDays = nil
	}
	return in, nil
}

// applyPatch returns the patched task and the store columns that changed.
func applyPatch(task model.Task, patch Patch, now time.Time) (model.Task, map[string]any, error) {
	task = task.Clone()
	fields := make(map[string]any)

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return task, nil, ErrEmptyTitle
		}
		task.Title = title
		fields["title"] = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
		fields["description"] = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return task, nil, ErrInvalidPriority
		}
		task.Priority = *patch.Priority
		fields["priority"] = *patch.Priority
	}
	switch {
	case patch.ClearDeadline:
		task.Deadline = nil
		fields["deadline"] = nil
	case patch.Deadline != nil:
		d := *patch.Deadline
		task.Deadline = &d
		fields["deadline"] = d
	}
	if patch.RepeatDays != nil {
		days := *patch.RepeatDays
		if err := days.Validate(); err != nil {
			return task, nil, fmt.Errorf("%w: %v", ErrInvalidWeekday, err)
		}
		if len(days) == 0 {
			days = nil
		}
		task.RepeatDays = days
		fields["repeat_days"] = days
	}
	if patch.Status != nil && *patch.Status != task.Status {
		switch *patch.Status {
		case model.StatusCompleted:
			at := now
			task.Status = model.StatusCompleted
			task.CompletedAt = &at
			fields["completed_at"] = at
		case model.StatusPending:
			task.Status = model.StatusPending
			task.CompletedAt = nil
			fields["completed_at"] = nil
		default:
			return task, nil, ErrInvalidStatus
		}
		fields["status"] = task.Status
	}
	return task, fields, nil
}

func cloneAll(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
)

// Store is the persistence surface the tools expose.
type Store interface {
	ListAll(ctx context.Context) ([]model.Task, error)
	Insert(ctx context.Context, task *model.Task) error
	UpdateByID(ctx context.Context, id string, fields map[string]any) error
	DeleteByID(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	ListByDate(ctx context.Context, day time.Time) ([]model.Task, error)
	ListRepeating(ctx context.Context) ([]model.Task, error)
}

// ToolHandler handles MCP tool calls
type ToolHandler struct {
	store Store
	now   func() time.Time
}

// NewToolHandler creates a new tool handler
func NewToolHandler(store Store, now func() time.Time) *ToolHandler {
	return &ToolHandler{store: store, now: now}
}

// Handle dispatches a tool call to the appropriate handler
func (h *ToolHandler) Handle(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "get_all_tasks":
		return h.store.ListAll(ctx)
	case "add_task":
		return h.handleAdd(ctx, args)
	case "update_task":
		return h.handleUpdate(ctx, args)
	case "delete_task":
		return h.handleDelete(ctx, args)
	case "get_tasks_by_date":
		return h.handleByDate(ctx, args)
	case "get_repeat_tasks":
		return h.store.ListRepeating(ctx)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (h *ToolHandler) handleAdd(ctx context.Context, args map[string]any) (any, error) {
	title := strings.TrimSpace(stringArg(args, "title"))
	if title == "" {
		return nil, errors.New("title is required")
	}
	priority := model.Priority(stringArg(args, "priority"))
	if !priority.Valid() {
		return nil, errors.New("priority must be one of low, medium, high")
	}
	deadline, err := deadlineArg(args)
	if err != nil {
		return nil, err
	}
	days, err := weekdaysArg(args)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: stringArg(args, "description"),
		Priority:    priority,
		Status:      model.StatusPending,
		Deadline:    deadline,
		CreatedAt:   h.now(),
		RepeatDays:  days,
	}
	if err := h.store.Insert(ctx, &task); err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("task added: %s", task.Title),
		"task":    task,
	}, nil
}

func (h *ToolHandler) handleUpdate(ctx context.Context, args map[string]any) (any, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, errors.New("id is required")
	}

	fields := make(map[string]any)
	if v, ok := args["title"]; ok {
		title, _ := v.(string)
		if strings.TrimSpace(title) == "" {
			return nil, errors.New("title must not be empty")
		}
		fields["title"] = strings.TrimSpace(title)
	}
	if v, ok := args["description"].(string); ok {
		fields["description"] = v
	}
	if v, ok := args["priority"]; ok {
		p, _ := v.(string)
		if !model.Priority(p).Valid() {
			return nil, errors.New("priority must be one of low, medium, high")
		}
		fields["priority"] = model.Priority(p)
	}
	statusUnchanged := false
	if v, ok := args["status"]; ok {
		s, _ := v.(string)
		status := model.Status(s)
		if !status.Valid() {
			return nil, errors.New("status must be pending or completed")
		}
		// Re-sending the current status keeps the original completion time.
		current, err := h.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == status {
			statusUnchanged = true
		} else {
			if status == model.StatusCompleted {
				fields["completed_at"] = h.now()
			} else {
				fields["completed_at"] = nil
			}
			fields["status"] = status
		}
	}
	if hasDeadlineArg(args) {
		deadline, err := deadlineArg(args)
		if err != nil {
			return nil, err
		}
		if deadline == nil {
			fields["deadline"] = nil
		} else {
			fields["deadline"] = *deadline
		}
	}
	if _, ok := args["repeatDays"]; ok {
		days, err := weekdaysArg(args)
		if err != nil {
			return nil, err
		}
		fields["repeat_days"] = days
	}
	if len(fields) == 0 {
		if statusUnchanged {
			return map[string]any{"message": fmt.Sprintf("task unchanged: %s", id)}, nil
		}
		return nil, errors.New("nothing to update")
	}

	if err := h.store.UpdateByID(ctx, id, fields); err != nil {
		return nil, err
	}
	return map[string]any{"message": fmt.Sprintf("task updated: %s", id)}, nil
}

func (h *ToolHandler) handleDelete(ctx context.Context, args map[string]any) (any, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, errors.New("id is required")
	}
	if err := h.store.DeleteByID(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"message": fmt.Sprintf("task deleted: %s", id)}, nil
}

func (h *ToolHandler) handleByDate(ctx context.Context, args map[string]any) (any, error) {
	raw := stringArg(args, "date")
	if raw == "" {
		return nil, errors.New("date is required")
	}
	day, err := calendar.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return h.store.ListByDate(ctx, day)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// hasDeadlineArg accepts "deadline" and the older "dueDate" spelling.
func hasDeadlineArg(args map[string]any) bool {
	_, a := args["deadline"]
	_, b := args["dueDate"]
	return a || b
}

func deadlineArg(args map[string]any) (*time.Time, error) {
	raw := stringArg(args, "deadline")
	if raw == "" {
		raw = stringArg(args, "dueDate")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := calendar.ParseInstant(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// weekdaysArg reads repeatDays as a JSON array of numbers.
func weekdaysArg(args map[string]any) (model.Weekdays, error) {
	raw, ok := args["repeatDays"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("repeatDays must be an array of weekday numbers")
	}
	days := make(model.Weekdays, 0, len(list))
	for _, item := range list {
		n, ok := item.(float64)
		if !ok || n != float64(int(n)) {
			return nil, errors.New("repeatDays must be an array of weekday numbers")
		}
		days = append(days, int(n))
	}
	if err := days.Validate(); err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, nil
	}
	return days, nil
}

func toolDefinitions() []Tool {
	priority := map[string]any{
		"type":        "string",
		"enum":        []string{"low", "medium", "high"},
		"description": "Priority",
	}
	deadline := map[string]any{
		"type":        "string",
		"description": "Deadline as ISO 8601 timestamp or YYYY-MM-DD (UTC+9 when no zone is given)",
	}
	repeatDays := map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "integer", "minimum": 0, "maximum": 6},
		"description": "Repeat weekdays (0=Sunday, 1=Monday, ..., 6=Saturday)",
	}
	empty := map[string]any{"type": "object", "properties": map[string]any{}}

	return []Tool{
		{
			Name:        "get_all_tasks",
			Description: "List every task, newest first",
			InputSchema: empty,
		},
		{
			Name:        "add_task",
			Description: "Add a new pending task",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "Task title"},
					"description": map[string]any{"type": "string", "description": "Task description"},
					"priority":    priority,
					"deadline":    deadline,
					"dueDate":     deadline,
					"repeatDays":  repeatDays,
				},
				"required": []string{"title", "priority"},
			},
		},
		{
			Name:        "update_task",
			Description: "Update the supplied fields of a task",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":          map[string]any{"type": "string", "description": "Task ID"},
					"title":       map[string]any{"type": "string", "description": "Task title"},
					"description": map[string]any{"type": "string", "description": "Task description"},
					"priority":    priority,
					"status": map[string]any{
						"type":        "string",
						"enum":        []string{"pending", "completed"},
						"description": "Task status",
					},
					"deadline":   deadline,
					"dueDate":    deadline,
					"repeatDays": repeatDays,
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "delete_task",
			Description: "Delete a task",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string", "description": "Task ID"},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "get_tasks_by_date",
			Description: "List tasks whose deadline falls on a date",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{"type": "string", "description": "Date (YYYY-MM-DD)"},
				},
				"required": []string{"date"},
			},
		},
		{
			Name:        "get_repeat_tasks",
			Description: "List recurring tasks",
			InputSchema: empty,
		},
	}
}

package model

import "time"

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is either pending or completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Task represents a single item in the planner.
// CompletedAt is set iff Status is completed.
type Task struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `gorm:"size:16;default:medium" json:"priority"`
	Status      Status     `gorm:"size:16;default:pending;index" json:"status"`
	Deadline    *time.Time `gorm:"index" json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RepeatDays  Weekdays   `gorm:"type:text" json:"repeatDays,omitempty"`
}

// IsRecurring reports whether the task spawns instances on its repeat days.
func (t Task) IsRecurring() bool {
	return len(t.RepeatDays) > 0
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	c := t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.RepeatDays != nil {
		c.RepeatDays = append(Weekdays(nil), t.RepeatDays...)
	}
	return c
}

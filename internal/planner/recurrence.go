package planner

import (
	"time"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
)

// GenerateDueRecurrences returns the instances that recurring templates owe for now's day.
//
// Each template produces at most one instance per day: an instance is skipped when
// any task (including one generated earlier in the same call) already has today's
// deadline, the same title and the same repeat days.
func GenerateDueRecurrences(tasks []model.Task, now time.Time, newID func() string) []model.Task {
	weekday := calendar.Weekday(now)
	todayStart := calendar.DateOnly(now)

	var created []model.Task
	for _, tmpl := range tasks {
		if !tmpl.IsRecurring() || !tmpl.RepeatDays.Contains(weekday) {
			continue
		}
		if tmpl.Deadline == nil || calendar.DateOnly(*tmpl.Deadline).Before(todayStart) {
			continue
		}
		if hasInstance(tasks, tmpl, todayStart) || hasInstance(created, tmpl, todayStart) {
			continue
		}

		instance := tmpl.Clone()
		deadline := todayStart
		instance.ID = newID()
		instance.Status = model.StatusPending
		instance.CompletedAt = nil
		instance.CreatedAt = now
		instance.Deadline = &deadline
		created = append(created, instance)
	}
	return created
}

func hasInstance(tasks []model.Task, tmpl model.Task, day time.Time) bool {
	for _, t := range tasks {
		if t.Deadline == nil || !calendar.DateOnly(*t.Deadline).Equal(day) {
			continue
		}
		if t.Title == tmpl.Title && t.RepeatDays.Equal(tmpl.RepeatDays) {
			return true
		}
	}
	return false
}

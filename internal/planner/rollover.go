package planner

import (
	"time"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
)

// RollPendingToTomorrow moves every pending task due today to the start of tomorrow.
// It returns a new slice with the changes applied and the moved tasks.
//
// Tasks already overdue are left alone, and a single call never moves a task
// more than one day.
func RollPendingToTomorrow(tasks []model.Task, now time.Time) (updated, moved []model.Task) {
	today := calendar.DateOnly(now)
	tomorrow := calendar.NextDay(now)

	updated = make([]model.Task, len(tasks))
	for i, task := range tasks {
		updated[i] = task
		if task.Status != model.StatusPending || task.Deadline == nil {
			continue
		}
		if !calendar.DateOnly(*task.Deadline).Equal(today) {
			continue
		}
		next := tomorrow
		task.Deadline = &next
		updated[i] = task
		moved = append(moved, task)
	}
	return updated, moved
}

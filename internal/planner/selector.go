package planner

import (
	"time"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
)

// SelectForDay returns the tasks visible on day, preserving input order.
//
// A task is visible when it has a deadline, was created on or before day,
// was not completed before day, and its deadline is not earlier than day.
func SelectForDay(tasks []model.Task, day time.Time) []model.Task {
	selected := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if VisibleOn(task, day) {
			selected = append(selected, task)
		}
	}
	return selected
}

// VisibleOn applies the day-bucket rule to a single task.
func VisibleOn(task model.Task, day time.Time) bool {
	if task.Deadline == nil {
		return false
	}
	d := calendar.DateOnly(day)
	if d.Before(calendar.DateOnly(task.CreatedAt)) {
		return false
	}
	if task.Status == model.StatusCompleted && task.CompletedAt != nil {
		if d.After(calendar.DateOnly(*task.CompletedAt)) {
			return false
		}
	}
	return !calendar.DateOnly(*task.Deadline).Before(d)
}

// FilterStatus narrows a bucket to one status; an empty status keeps everything.
func FilterStatus(tasks []model.Task, status model.Status) []model.Task {
	if status == "" {
		return tasks
	}
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

// Counts summarizes a bucket.
type Counts struct {
	Total     int
	Pending   int
	Completed int
}

// CountBucket counts tasks by status.
func CountBucket(tasks []model.Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, task := range tasks {
		if task.Status == model.StatusCompleted {
			c.Completed++
		} else {
			c.Pending++
		}
	}
	return c
}

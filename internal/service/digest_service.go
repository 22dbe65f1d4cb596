package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
	"daily-tasks/internal/planner"
)

// DayLister yields the day bucket for a date.
type DayLister interface {
	ForDay(day time.Time) []model.Task
}

// DigestService builds human-readable summaries of a day bucket.
type DigestService struct {
	tasks DayLister
}

func NewDigestService(tasks DayLister) *DigestService {
	return &DigestService{tasks: tasks}
}

// DaySummary renders the bucket for day as Telegram HTML.
// now decides which deadlines are overdue.
func (s *DigestService) DaySummary(day, now time.Time) string {
	bucket := s.tasks.ForDay(day)
	counts := planner.CountBucket(bucket)

	var pending, done []model.Task
	for _, task := range bucket {
		if task.Status == model.StatusCompleted {
			done = append(done, task)
		} else {
			pending = append(pending, task)
		}
	}
	SortForDisplay(pending)
	SortForDisplay(done)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>%s</b> · %d/%d done\n\n", calendar.FormatDate(day), counts.Completed, counts.Total))

	builder.WriteString("🔥 <b>Pending</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing left\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, now))
		}
	}

	if len(done) > 0 {
		builder.WriteString("\n✅ <b>Completed</b>\n")
		for _, task := range done {
			builder.WriteString(formatTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String())
}

// SortForDisplay orders by priority (high first), then deadline, then newest.
func SortForDisplay(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		pi, pj := priorityRank(tasks[i].Priority), priorityRank(tasks[j].Priority)
		if pi != pj {
			return pi < pj
		}
		switch {
		case tasks[i].Deadline == nil && tasks[j].Deadline == nil:
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		case tasks[i].Deadline == nil:
			return false
		case tasks[j].Deadline == nil:
			return true
		default:
			return tasks[i].Deadline.Before(*tasks[j].Deadline)
		}
	})
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 0
	case model.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// PriorityIcon maps a priority to the marker shown in lists.
func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// RepeatLabel renders repeat days as "Mon, Wed, Fri".
func RepeatLabel(days model.Weekdays) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(weekdayNames) {
			names = append(names, weekdayNames[d])
		}
	}
	return strings.Join(names, ", ")
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := PriorityIcon(task.Priority)
	title := html.EscapeString(strings.TrimSpace(task.Title))
	if task.Status == model.StatusCompleted {
		title = "<s>" + title + "</s>"
	}
	sb.WriteString(fmt.Sprintf("%s %s <code>%s</code>", icon, title, shortID(task.ID)))

	if task.Deadline != nil && task.Status == model.StatusPending {
		d := task.Deadline.In(calendar.Zone)
		if calendar.DateOnly(d).Before(calendar.DateOnly(now)) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s · <b>overdue</b>", calendar.FormatDate(d)))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s", calendar.FormatDate(d)))
		}
	}

	if task.IsRecurring() {
		sb.WriteString(fmt.Sprintf("\n   ♻️ %s", RepeatLabel(task.RepeatDays)))
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

// shortID keeps the first 8 characters of a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
	"daily-tasks/internal/planner"
	"daily-tasks/internal/service"
)

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "Print the tasks of a day (today by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDay,
}

func init() {
	dayCmd.Flags().String("status", "all", "Filter: all, pending, completed")
}

func runDay(cmd *cobra.Command, args []string) error {
	day, err := dayArg(args)
	if err != nil {
		return err
	}
	statusFlag, _ := cmd.Flags().GetString("status")
	status, err := parseStatusFilter(statusFlag)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.loadPlanner(cmd.Context())
	if err != nil {
		return err
	}
	printDay(cmd.OutOrStdout(), p.ForDay(day), day, status)
	return nil
}

// dayArg parses the optional date argument, defaulting to today.
func dayArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return calendar.DateOnly(calendar.Now()), nil
	}
	return calendar.ParseDate(args[0])
}

func parseStatusFilter(raw string) (model.Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return "", nil
	case string(model.StatusPending):
		return model.StatusPending, nil
	case string(model.StatusCompleted):
		return model.StatusCompleted, nil
	default:
		return "", fmt.Errorf("--status must be all, pending or completed, got %q", raw)
	}
}

// printDay writes a plain-text view of a bucket. Counts cover the whole bucket
// regardless of the status filter.
func printDay(w io.Writer, bucket []model.Task, day time.Time, status model.Status) {
	counts := planner.CountBucket(bucket)
	fmt.Fprintf(w, "%s  %d/%d done\n", calendar.FormatDate(day), counts.Completed, counts.Total)

	tasks := planner.FilterStatus(bucket, status)
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  (no tasks)")
		return
	}
	service.SortForDisplay(tasks)
	for _, task := range tasks {
		mark := "[ ]"
		if task.Status == model.StatusCompleted {
			mark = "[x]"
		}
		line := fmt.Sprintf("  %s %-6s %s  %s", mark, task.Priority, task.ID, task.Title)
		if task.IsRecurring() {
			line += "  (" + service.RepeatLabel(task.RepeatDays) + ")"
		}
		fmt.Fprintln(w, line)
	}
}

package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
	"daily-tasks/internal/repository"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, calendar.Zone)
}

func ptr(t time.Time) *time.Time { return &t }

// seedStore points the commands at a fresh SQLite file holding tasks.
func seedStore(t *testing.T, tasks ...model.Task) *repository.TaskRepository {
	t.Helper()
	dir := t.TempDir()
	testChdir(t, dir)
	for _, key := range []string{"TELEGRAM_TOKEN", "ALLOWED_CHAT_ID", "DAILY_RUN_AT",
		"RELOAD_INTERVAL", "LOG_LEVEL", "METRICS_ADDR"} {
		t.Setenv(key, "")
	}
	dsn := filepath.Join(dir, "tasks.db")
	t.Setenv("DATABASE_URL", dsn)
	t.Setenv("LOG_FORMAT", "json")

	db, err := repository.NewDB(dsn, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := repository.NewTaskRepository(db)
	for i := range tasks {
		require.NoError(t, repo.Insert(context.Background(), &tasks[i]))
	}
	return repo
}

func testCommand(run func(*cobra.Command, []string) error) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{RunE: run}
	cmd.Flags().String("status", "all", "")
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	return cmd, &out
}

func TestTickRollsOverAndGenerates(t *testing.T) {
	repo := seedStore(t,
		model.Task{ID: "rent", Title: "Pay rent", Priority: model.PriorityHigh, Status: model.StatusPending,
			Deadline: ptr(at(2024, 3, 6, 0)), CreatedAt: at(2024, 3, 1, 9)},
		model.Task{ID: "gym", Title: "Gym", Priority: model.PriorityMedium, Status: model.StatusPending,
			Deadline: ptr(at(2024, 12, 31, 0)), CreatedAt: at(2024, 3, 1, 9), RepeatDays: model.Weekdays{1, 3, 5}},
	)

	cmd, out := testCommand(runTick)
	require.NoError(t, runTick(cmd, []string{"2024-03-06"}))
	assert.Contains(t, out.String(), "1 task(s) rolled over, 1 recurring instance(s) created")

	ctx := context.Background()
	rent, err := repo.FindByID(ctx, "rent")
	require.NoError(t, err)
	assert.True(t, rent.Deadline.Equal(at(2024, 3, 7, 0)))

	due, err := repo.ListByDate(ctx, at(2024, 3, 6, 0))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Gym", due[0].Title)
	assert.NotEqual(t, "gym", due[0].ID)
	assert.Equal(t, model.StatusPending, due[0].Status)
}

func TestDayPrintsBucket(t *testing.T) {
	seedStore(t,
		model.Task{ID: "a", Title: "Write report", Priority: model.PriorityHigh, Status: model.StatusPending,
			Deadline: ptr(at(2024, 3, 8, 0)), CreatedAt: at(2024, 3, 1, 9)},
		model.Task{ID: "b", Title: "Call mom", Priority: model.PriorityLow, Status: model.StatusCompleted,
			Deadline: ptr(at(2024, 3, 9, 0)), CreatedAt: at(2024, 3, 1, 9), CompletedAt: ptr(at(2024, 3, 5, 20))},
		model.Task{ID: "c", Title: "Someday", Priority: model.PriorityLow, Status: model.StatusPending, CreatedAt: at(2024, 3, 1, 9)},
	)

	cmd, out := testCommand(runDay)
	require.NoError(t, runDay(cmd, []string{"2024-03-05"}))
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "2024-03-05  1/2 done"), text)
	assert.Contains(t, text, "[ ] high   a  Write report")
	assert.Contains(t, text, "[x] low    b  Call mom")
	assert.NotContains(t, text, "Someday")

	cmd, out = testCommand(runDay)
	require.NoError(t, cmd.Flags().Set("status", "completed"))
	require.NoError(t, runDay(cmd, []string{"2024-03-05"}))
	assert.NotContains(t, out.String(), "Write report")
	assert.Contains(t, out.String(), "1/2 done")

	cmd, _ = testCommand(runDay)
	require.NoError(t, cmd.Flags().Set("status", "open"))
	assert.Error(t, runDay(cmd, []string{"2024-03-05"}))
	cmd, _ = testCommand(runDay)
	assert.Error(t, runDay(cmd, []string{"05/03/2024"}))
}

func TestPrintDayEmpty(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	printDay(&out, nil, at(2024, 3, 5, 0), "")
	assert.Equal(t, "2024-03-05  0/0 done\n  (no tasks)\n", out.String())
}

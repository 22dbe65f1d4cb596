package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
)

type memStore struct {
	tasks   []model.Task
	updates map[string]map[string]any
}

func (m *memStore) ListAll(ctx context.Context) ([]model.Task, error) { return m.tasks, nil }

func (m *memStore) Insert(ctx context.Context, task *model.Task) error {
	m.tasks = append([]model.Task{*task}, m.tasks...)
	return nil
}

func (m *memStore) UpdateByID(ctx context.Context, id string, fields map[string]any) error {
	if m.updates == nil {
		m.updates = make(map[string]map[string]any)
	}
	m.updates[id] = fields
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			if status, ok := fields["status"].(model.Status); ok {
				m.tasks[i].Status = status
			}
			return nil
		}
	}
	return nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (*model.Task, error) {
	for _, t := range m.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, assert.AnError
}

func (m *memStore) DeleteByID(ctx context.Context, id string) error {
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return assert.AnError
}

func (m *memStore) ListByDate(ctx context.Context, day time.Time) ([]model.Task, error) {
	var out []model.Task
	for _, t := range m.tasks {
		if t.Deadline != nil && calendar.SameDay(*t.Deadline, day) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListRepeating(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	for _, t := range m.tasks {
		if t.IsRecurring() {
			out = append(out, t)
		}
	}
	return out, nil
}

func run(t *testing.T, store Store, lines ...string) []Response {
	t.Helper()
	srv := NewServer(store, "test", zerolog.Nop())
	var out bytes.Buffer
	require.NoError(t, srv.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n")), &out))

	var responses []Response
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func callResult(t *testing.T, resp Response) CallToolResult {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	return result
}

func TestServerInitializeAndList(t *testing.T) {
	responses := run(t, &memStore{},
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"nope"}`,
		`not json`,
	)
	require.Len(t, responses, 4, "notifications get no response")

	assert.Nil(t, responses[0].Error)

	raw, err := json.Marshal(responses[1].Result)
	require.NoError(t, err)
	var list ListToolsResult
	require.NoError(t, json.Unmarshal(raw, &list))
	names := make([]string, 0, len(list.Tools))
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"get_all_tasks", "add_task", "update_task", "delete_task", "get_tasks_by_date", "get_repeat_tasks",
	}, names)

	require.NotNil(t, responses[2].Error)
	assert.Equal(t, codeMethodNotFound, responses[2].Error.Code)
	require.NotNil(t, responses[3].Error)
	assert.Equal(t, codeParseError, responses[3].Error.Code)
}

func TestServerAddAndQueryTasks(t *testing.T) {
	store := &memStore{}
	responses := run(t, store,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add_task","arguments":{"title":"Gym","priority":"high","deadline":"2024-03-06","repeatDays":[1,3,5]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_tasks_by_date","arguments":{"date":"2024-03-06"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_repeat_tasks"}}`,
	)
	require.Len(t, responses, 3)

	added := callResult(t, responses[0])
	assert.False(t, added.IsError, added.Content[0].Text)
	require.Len(t, store.tasks, 1)
	task := store.tasks[0]
	assert.Equal(t, "Gym", task.Title)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Equal(t, model.Weekdays{1, 3, 5}, task.RepeatDays)
	assert.NotEmpty(t, task.ID)

	var byDate []model.Task
	require.NoError(t, json.Unmarshal([]byte(callResult(t, responses[1]).Content[0].Text), &byDate))
	require.Len(t, byDate, 1)
	assert.Equal(t, task.ID, byDate[0].ID)

	var repeating []model.Task
	require.NoError(t, json.Unmarshal([]byte(callResult(t, responses[2]).Content[0].Text), &repeating))
	assert.Len(t, repeating, 1)
}

func TestServerToolErrorsAreResults(t *testing.T) {
	responses := run(t, &memStore{},
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add_task","arguments":{"title":"","priority":"low"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"add_task","arguments":{"title":"x","priority":"urgent"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_tasks_by_date","arguments":{"date":"06/03/2024"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"launch_rocket","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"add_task","arguments":{"title":"x","priority":"low","repeatDays":[9]}}}`,
	)
	require.Len(t, responses, 5)
	for _, resp := range responses {
		assert.Nil(t, resp.Error)
		assert.True(t, callResult(t, resp).IsError)
	}
}

func TestToolHandlerUpdateKeepsCompletedAtInvariant(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 6, 9, 0, 0, 0, calendar.Zone)
	store := &memStore{tasks: []model.Task{{ID: "t1", Title: "Read", Status: model.StatusPending}}}
	h := NewToolHandler(store, func() time.Time { return now })
	ctx := context.Background()

	_, err := h.Handle(ctx, "update_task", map[string]any{"id": "t1", "status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, store.updates["t1"]["status"])
	assert.Equal(t, now, store.updates["t1"]["completed_at"])

	_, err = h.Handle(ctx, "update_task", map[string]any{"id": "t1", "status": "pending", "dueDate": ""})
	require.NoError(t, err)
	assert.Contains(t, store.updates["t1"], "completed_at")
	assert.Nil(t, store.updates["t1"]["completed_at"])
	assert.Nil(t, store.updates["t1"]["deadline"], "empty deadline clears it")

	_, err = h.Handle(ctx, "update_task", map[string]any{"id": "t1"})
	assert.Error(t, err)
	_, err = h.Handle(ctx, "update_task", map[string]any{"id": "missing", "status": "completed"})
	assert.Error(t, err)
	_, err = h.Handle(ctx, "update_task", map[string]any{"title": "x"})
	assert.Error(t, err)
}

func TestToolHandlerDelete(t *testing.T) {
	t.Parallel()
	store := &memStore{tasks: []model.Task{{ID: "t1", Title: "a"}}}
	h := NewToolHandler(store, time.Now)

	_, err := h.Handle(context.Background(), "delete_task", map[string]any{"id": "t1"})
	require.NoError(t, err)
	assert.Empty(t, store.tasks)

	_, err = h.Handle(context.Background(), "delete_task", map[string]any{})
	assert.Error(t, err)
}

func TestToolHandlerRepeatedCompletionKeepsCompletedAt(t *testing.T) {
	t.Parallel()
	completedAt := time.Date(2024, 3, 5, 21, 0, 0, 0, calendar.Zone)
	store := &memStore{tasks: []model.Task{
		{ID: "t1", Title: "Read", Status: model.StatusCompleted, CompletedAt: &completedAt},
	}}
	h := NewToolHandler(store, func() time.Time { return completedAt.Add(24 * time.Hour) })
	ctx := context.Background()

	_, err := h.Handle(ctx, "update_task", map[string]any{"id": "t1", "status": "completed"})
	require.NoError(t, err)
	assert.NotContains(t, store.updates, "t1", "same status writes nothing")

	_, err = h.Handle(ctx, "update_task", map[string]any{"id": "t1", "status": "completed", "title": "Read more"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Read more"}, store.updates["t1"])
}

func TestServerRunStopsOnCancelWhileIdle(t *testing.T) {
	t.Parallel()
	stdin, stdinWriter := io.Pipe()
	defer stdinWriter.Close()

	var out safeBuffer
	srv := NewServer(&memStore{}, "test", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx, stdin, &out) }()

	_, err := io.WriteString(stdinWriter, `{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), `"id":1`) }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel with stdin idle")
	}
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

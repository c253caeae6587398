package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tendd/internal/core"
	"tendd/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type stubStore struct {
	mu        sync.Mutex
	deletes   []string
	snapshots chan []core.Task
}

func (f *stubStore) UpsertTask(ctx context.Context, task *core.Task) error { return nil }

func (f *stubStore) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *stubStore) ListTasks(ctx context.Context) ([]core.Task, error) { return nil, nil }

func (f *stubStore) Subscribe() (<-chan []core.Task, func()) {
	if f.snapshots == nil {
		f.snapshots = make(chan []core.Task, 1)
	}
	return f.snapshots, func() {}
}

func newTestServer(t *testing.T, authToken string) (*httptest.Server, *tracker.Tracker) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := tracker.New(&stubStore{}, logger, tracker.WithClock(func() time.Time { return testNow }))
	srv := NewServer("127.0.0.1:0", authToken, tr, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return res
}

func decodeTask(t *testing.T, res *http.Response) taskResponse {
	t.Helper()
	defer res.Body.Close()
	var task taskResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&task))
	return task
}

func TestCreateTask(t *testing.T) {
	ts, _ := newTestServer(t, "")

	res := postJSON(t, ts.URL+"/v1/tasks", createTaskRequest{
		Event:     "water plants",
		Frequency: frequencyPayload{Value: 3, Unit: "days"},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	task := decodeTask(t, res)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "water plants", task.Event)
	assert.Equal(t, 3, task.Frequency.Value)
	assert.Equal(t, testNow.Add(3*24*time.Hour).Format(time.RFC3339), task.NextDueAt)
	assert.Equal(t, "3d", task.DueIn)
}

func TestCreateTaskRejectsBadFrequency(t *testing.T) {
	ts, _ := newTestServer(t, "")

	for _, freq := range []frequencyPayload{
		{Value: 0, Unit: "days"},
		{Value: -1, Unit: "days"},
		{Value: 2, Unit: "decades"},
	} {
		res := postJSON(t, ts.URL+"/v1/tasks", createTaskRequest{Event: "x", Frequency: freq})
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, "frequency %+v", freq)
	}
}

func TestCreateTaskRejectsBadJSON(t *testing.T) {
	ts, _ := newTestServer(t, "")

	res, err := http.Post(ts.URL+"/v1/tasks", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetTask(t *testing.T) {
	ts, tr := newTestServer(t, "")
	task, err := tr.Add(context.Background(), "water plants", core.Frequency{Value: 1, Unit: core.UnitDays})
	require.NoError(t, err)

	res, err := http.Get(ts.URL + "/v1/tasks/" + task.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decodeTask(t, res)
	assert.Equal(t, task.ID, got.ID)

	res, err = http.Get(ts.URL + "/v1/tasks/missing")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUpdateTaskEventOnly(t *testing.T) {
	ts, tr := newTestServer(t, "")
	task, err := tr.Add(context.Background(), "water plants", core.Frequency{Value: 1, Unit: core.UnitDays})
	require.NoError(t, err)

	event := "water the ferns"
	data, err := json.Marshal(updateTaskRequest{Event: &event})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/v1/tasks/"+task.ID, bytes.NewReader(data))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	got := decodeTask(t, res)
	assert.Equal(t, "water the ferns", got.Event)
	assert.Equal(t, task.NextDueAt.UTC().Format(time.RFC3339), got.NextDueAt)
}

func TestUpdateMissingTaskIs404(t *testing.T) {
	ts, _ := newTestServer(t, "")

	event := "x"
	data, err := json.Marshal(updateTaskRequest{Event: &event})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/v1/tasks/missing", bytes.NewReader(data))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCompleteAndSkipEndpoints(t *testing.T) {
	ts, tr := newTestServer(t, "")
	task, err := tr.Add(context.Background(), "water plants", core.Frequency{Value: 1, Unit: core.UnitDays})
	require.NoError(t, err)

	res := postJSON(t, ts.URL+"/v1/tasks/"+task.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	done := decodeTask(t, res)
	require.NotNil(t, done.LastDoneAt)
	assert.Equal(t, testNow.Format(time.RFC3339), *done.LastDoneAt)

	res = postJSON(t, ts.URL+"/v1/tasks/"+task.ID+"/skip", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	skipped := decodeTask(t, res)
	assert.Equal(t, testNow.Add(24*time.Hour).Format(time.RFC3339), skipped.NextDueAt)

	res = postJSON(t, ts.URL+"/v1/tasks/missing/complete", nil)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDeleteTaskIsIdempotent(t *testing.T) {
	ts, tr := newTestServer(t, "")
	task, err := tr.Add(context.Background(), "water plants", core.Frequency{Value: 1, Unit: core.UnitDays})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/tasks/"+task.ID, nil)
		require.NoError(t, err)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusNoContent, res.StatusCode)
	}

	_, ok := tr.Get(task.ID)
	assert.False(t, ok)
}

func TestBoardGroups(t *testing.T) {
	ts, tr := newTestServer(t, "")
	_, err := tr.Add(context.Background(), "hourly", core.Frequency{Value: 1, Unit: core.UnitHours})
	require.NoError(t, err)
	_, err = tr.Add(context.Background(), "daily", core.Frequency{Value: 1, Unit: core.UnitDays})
	require.NoError(t, err)

	res, err := http.Get(ts.URL + "/v1/board")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var board boardResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&board))
	assert.Empty(t, board.Overdue)
	require.Len(t, board.Upcoming, 2)
	assert.Equal(t, "hourly", board.Upcoming[0].Event)
	assert.Equal(t, "1h", board.Upcoming[0].DueIn)
	assert.Empty(t, board.Rest)
}

func TestEventsStreamSendsInitialBoard(t *testing.T) {
	ts, tr := newTestServer(t, "")
	_, err := tr.Add(context.Background(), "water plants", core.Frequency{Value: 1, Unit: core.UnitDays})
	require.NoError(t, err)

	res, err := http.Get(ts.URL + "/v1/events")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(res.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, data)

	var board boardResponse
	require.NoError(t, json.Unmarshal([]byte(data), &board))
	require.Len(t, board.Upcoming, 1)
	assert.Equal(t, "water plants", board.Upcoming[0].Event)
}

func TestAuthMiddleware(t *testing.T) {
	ts, _ := newTestServer(t, "sekrit")

	res, err := http.Get(ts.URL + "/v1/tasks")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer sekrit")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// EventSource clients pass the token as a query param.
	res, err = http.Get(ts.URL + "/v1/tasks?token=sekrit")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskDueAt(id string, due time.Time) Task {
	return Task{
		ID:        id,
		Event:     "task " + id,
		Frequency: Frequency{Value: 1, Unit: UnitDays},
		NextDueAt: due,
		CreatedAt: due.Add(-24 * time.Hour),
	}
}

func TestClassifyPartitions(t *testing.T) {
	now := base
	tasks := []Task{
		taskDueAt("a", now.Add(3*time.Hour)),
		taskDueAt("b", now.Add(-2*time.Hour)),
		taskDueAt("c", now.Add(time.Hour)),
		taskDueAt("d", now.Add(-30*time.Minute)),
		taskDueAt("e", now.Add(48*time.Hour)),
		taskDueAt("f", now.Add(10*time.Hour)),
	}

	board := Classify(tasks, now)

	// Overdue sorted ascending by due time.
	require.Len(t, board.Overdue, 2)
	assert.Equal(t, "b", board.Overdue[0].ID)
	assert.Equal(t, "d", board.Overdue[1].ID)

	// Upcoming is the two soonest-due non-overdue tasks.
	require.Len(t, board.Upcoming, 2)
	assert.Equal(t, "c", board.Upcoming[0].ID)
	assert.Equal(t, "a", board.Upcoming[1].ID)

	require.Len(t, board.Rest, 2)
	assert.Equal(t, "f", board.Rest[0].ID)
	assert.Equal(t, "e", board.Rest[1].ID)

	// Every input task lands in exactly one group.
	seen := map[string]int{}
	for _, group := range [][]Task{board.Overdue, board.Upcoming, board.Rest} {
		for _, task := range group {
			seen[task.ID]++
		}
	}
	assert.Len(t, seen, len(tasks))
	for id, count := range seen {
		assert.Equal(t, 1, count, "task %s classified %d times", id, count)
	}
}

func TestClassifyFewTasks(t *testing.T) {
	now := base

	board := Classify(nil, now)
	assert.Empty(t, board.Overdue)
	assert.Empty(t, board.Upcoming)
	assert.Empty(t, board.Rest)

	board = Classify([]Task{taskDueAt("a", now.Add(time.Hour))}, now)
	assert.Len(t, board.Upcoming, 1)
	assert.Empty(t, board.Rest)
}

func TestClassifyDueExactlyNowIsNotOverdue(t *testing.T) {
	now := base
	board := Classify([]Task{taskDueAt("a", now)}, now)

	assert.Empty(t, board.Overdue)
	require.Len(t, board.Upcoming, 1)
	assert.Equal(t, "a", board.Upcoming[0].ID)
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	now := base
	tasks := []Task{
		taskDueAt("z", now.Add(5*time.Hour)),
		taskDueAt("y", now.Add(time.Hour)),
	}

	Classify(tasks, now)

	assert.Equal(t, "z", tasks[0].ID)
	assert.Equal(t, "y", tasks[1].ID)
}

func TestFormatRelative(t *testing.T) {
	now := base
	cases := []struct {
		offset time.Duration
		want   string
	}{
		{-time.Millisecond, "Overdue"},
		{-48 * time.Hour, "Overdue"},
		{30 * time.Minute, "30m"},
		{59 * time.Minute, "59m"},
		{90 * time.Second, "2m"},
		{time.Hour, "1h"},
		{2 * time.Hour, "2h"},
		{90 * time.Minute, "2h"},
		{23 * time.Hour, "23h"},
		{24 * time.Hour, "1d"},
		{48 * time.Hour, "2d"},
		{60 * time.Hour, "3d"},
	}
	for _, tc := range cases {
		t.Run(tc.offset.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, FormatRelative(now.Add(tc.offset), now))
		})
	}
}

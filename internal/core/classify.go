package core

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// upcomingCount is how many soon-due tasks are surfaced separately.
const upcomingCount = 2

// Board is a pure view over the task collection at a point in time. It
// has no persisted representation and is recomputed whenever the tasks
// change or the clock advances.
type Board struct {
	Overdue  []Task
	Upcoming []Task
	Rest     []Task
}

// Classify partitions tasks into overdue / upcoming / rest. All three
// groups come out sorted ascending by NextDueAt; upcoming holds at most
// the two soonest-due tasks that are not yet overdue.
func Classify(tasks []Task, now time.Time) Board {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NextDueAt.Before(sorted[j].NextDueAt)
	})

	var board Board
	for _, t := range sorted {
		switch {
		case t.NextDueAt.Before(now):
			board.Overdue = append(board.Overdue, t)
		case len(board.Upcoming) < upcomingCount:
			board.Upcoming = append(board.Upcoming, t)
		default:
			board.Rest = append(board.Rest, t)
		}
	}
	return board
}

// FormatRelative renders a due timestamp as a compact label relative to
// now: "Overdue" once past, otherwise rounded minutes, hours, or days.
func FormatRelative(due, now time.Time) string {
	if due.Before(now) {
		return "Overdue"
	}
	d := due.Sub(now)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", round(d.Minutes()))
	case d < dayInterval:
		return fmt.Sprintf("%dh", round(d.Hours()))
	default:
		return fmt.Sprintf("%dd", round(d.Hours()/24))
	}
}

// round to nearest integer, halves up.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

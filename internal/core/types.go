package core

import (
	"fmt"
	"time"
)

// Unit is the unit component of a recurrence cadence.
type Unit string

const (
	UnitHours  Unit = "hours"
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

// Frequency describes how often a task recurs, e.g. {3, days}.
type Frequency struct {
	Value int  `json:"value"`
	Unit  Unit `json:"unit"`
}

// Validate rejects malformed frequencies at the input boundary so they
// never reach the recurrence arithmetic.
func (f Frequency) Validate() error {
	if f.Value < 1 {
		return fmt.Errorf("frequency value must be at least 1, got %d", f.Value)
	}
	switch f.Unit {
	case UnitHours, UnitDays, UnitWeeks, UnitMonths:
		return nil
	default:
		return fmt.Errorf("unknown frequency unit %q", f.Unit)
	}
}

// Task is a recurring event with a cadence and tracked last/next occurrence.
type Task struct {
	ID        string
	Event     string
	Frequency Frequency
	// LastDoneAt is nil only before the first completion.
	LastDoneAt *time.Time
	NextDueAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Anchor returns the base time the next occurrence is computed from:
// the last completion if there is one, otherwise the creation time.
func (t Task) Anchor() time.Time {
	if t.LastDoneAt != nil {
		return *t.LastDoneAt
	}
	return t.CreatedAt
}

// NewTask creates a task due one interval from now.
func NewTask(id, event string, f Frequency, now time.Time) Task {
	return Task{
		ID:         id,
		Event:      event,
		Frequency:  f,
		LastDoneAt: &now,
		NextDueAt:  now.Add(Interval(f)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

package core

import "time"

// Fixed interval lengths. Months use a flat 30-day approximation rather
// than calendar arithmetic.
const (
	hourInterval  = time.Hour
	dayInterval   = 24 * time.Hour
	weekInterval  = 7 * dayInterval
	monthInterval = 30 * dayInterval
)

// Interval converts a frequency into its duration. Callers are expected
// to have validated the frequency; an unknown unit yields zero.
func Interval(f Frequency) time.Duration {
	switch f.Unit {
	case UnitHours:
		return time.Duration(f.Value) * hourInterval
	case UnitDays:
		return time.Duration(f.Value) * dayInterval
	case UnitWeeks:
		return time.Duration(f.Value) * weekInterval
	case UnitMonths:
		return time.Duration(f.Value) * monthInterval
	default:
		return 0
	}
}

// RecomputeNext derives the next occurrence from an anchor timestamp.
func RecomputeNext(base time.Time, f Frequency) time.Time {
	return base.Add(Interval(f))
}

// Patch is a partial task update. nil pointer => "no change".
type Patch struct {
	Event      *string    `json:"event,omitempty"`
	Frequency  *Frequency `json:"frequency,omitempty"`
	LastDoneAt *time.Time `json:"last_done_at,omitempty"`
}

// ApplyEdit applies field changes to a task. Changing the frequency or
// explicitly setting the last completion recomputes NextDueAt from the
// new anchor with the new frequency. Editing the event label alone never
// touches NextDueAt.
func ApplyEdit(t Task, p Patch) Task {
	if p.Event != nil {
		t.Event = *p.Event
	}
	recompute := false
	if p.Frequency != nil {
		t.Frequency = *p.Frequency
		recompute = true
	}
	if p.LastDoneAt != nil {
		last := *p.LastDoneAt
		t.LastDoneAt = &last
		recompute = true
	}
	if recompute {
		t.NextDueAt = RecomputeNext(t.Anchor(), t.Frequency)
	}
	return t
}

// Complete records a completion at now and schedules the next occurrence
// one interval out.
func Complete(t Task, now time.Time) Task {
	done := now
	t.LastDoneAt = &done
	t.NextDueAt = RecomputeNext(now, t.Frequency)
	return t
}

// Skip pushes the next occurrence one interval out from now without
// recording a completion. The anchor is now itself, not the (possibly
// stale) last completion, so a skipped task is never immediately due
// again.
func Skip(t Task, now time.Time) Task {
	t.NextDueAt = now.Add(Interval(t.Frequency))
	return t
}

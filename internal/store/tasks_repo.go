package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tendd/internal/core"
)

// UpsertTask persists the full task record keyed by its id, overwriting
// any previous record with the same id. Subscribers receive a fresh
// snapshot afterwards.
func (s *Store) UpsertTask(ctx context.Context, task *core.Task) error {
	task.UpdatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tasks (id, event, freq_value, freq_unit, last_done_at, next_due_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			event = excluded.event,
			freq_value = excluded.freq_value,
			freq_unit = excluded.freq_unit,
			last_done_at = excluded.last_done_at,
			next_due_at = excluded.next_due_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, task.ID, task.Event, task.Frequency.Value, string(task.Frequency.Unit),
		nullableTime(task.LastDoneAt), formatTime(task.NextDueAt),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	s.broadcast(ctx)
	return nil
}

// DeleteTask removes the record with the given id. Deleting a task that
// is already gone is a no-op, not an error.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		s.broadcast(ctx)
	}
	return nil
}

// ListTasks reads the entire collection. There are no query filters;
// callers sort and partition client-side.
func (s *Store) ListTasks(ctx context.Context) ([]core.Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, event, freq_value, freq_unit, last_done_at, next_due_at, created_at, updated_at
		FROM tasks
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var tasks []core.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (core.Task, error) {
	var (
		id        string
		event     string
		freqValue int
		freqUnit  string
		lastDone  sql.NullString
		nextDue   string
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&id, &event, &freqValue, &freqUnit, &lastDone, &nextDue, &createdAt, &updatedAt); err != nil {
		return core.Task{}, fmt.Errorf("scan task: %w", err)
	}
	task := core.Task{
		ID:    id,
		Event: event,
		Frequency: core.Frequency{
			Value: freqValue,
			Unit:  core.Unit(freqUnit),
		},
	}
	if lastDone.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastDone.String); err == nil {
			task.LastDoneAt = &t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, nextDue); err == nil {
		task.NextDueAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		task.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		task.UpdatedAt = t
	}
	return task, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tendd/internal/core"

	"github.com/robfig/cron/v3"
)

// Store abstracts the persistence layer the tracker mediates. Writes are
// full-record upserts keyed by task id; reads always return the entire
// collection. Subscribe delivers full-collection snapshots after every
// write by any client.
type Store interface {
	UpsertTask(ctx context.Context, task *core.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context) ([]core.Task, error)
	Subscribe() (<-chan []core.Task, func())
}

// Tracker owns the authoritative in-memory view of the task collection.
// Mutations are applied optimistically in memory and persisted
// fire-and-forget; a failed write is logged and corrected by the next
// incoming snapshot rather than rolled back.
type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	tasks map[string]core.Task

	watchMu   sync.Mutex
	watchers  map[int]chan struct{}
	nextWatch int

	refresh *cron.Cron
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New constructs a tracker over the given store.
func New(store Store, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		logger:   logger,
		now:      time.Now,
		tasks:    make(map[string]core.Task),
		watchers: make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run loads the initial collection, then consumes snapshot pushes until
// ctx is canceled, replacing the in-memory copy wholesale on each push.
// A minute tick re-notifies watchers so derived views (overdue/upcoming,
// relative labels) stay fresh as the clock advances even when no task
// changes.
func (t *Tracker) Run(ctx context.Context) error {
	snapshots, cancel := t.store.Subscribe()
	defer cancel()

	if tasks, err := t.store.ListTasks(ctx); err != nil {
		t.logger.Error("initial task load", "err", err)
	} else {
		t.replace(tasks)
	}

	t.refresh = cron.New()
	if _, err := t.refresh.AddFunc("* * * * *", t.notifyWatchers); err != nil {
		t.logger.Error("register refresh tick", "err", err)
	}
	t.refresh.Start()
	defer t.refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tasks, ok := <-snapshots:
			if !ok {
				return nil
			}
			t.replace(tasks)
			t.notifyWatchers()
		}
	}
}

func (t *Tracker) replace(tasks []core.Task) {
	next := make(map[string]core.Task, len(tasks))
	for _, task := range tasks {
		next[task.ID] = task
	}
	t.mu.Lock()
	t.tasks = next
	t.mu.Unlock()
}

// Tasks returns a copy of the current collection, in no particular order.
func (t *Tracker) Tasks() []core.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, task)
	}
	return out
}

// Get returns the current in-memory record for id.
func (t *Tracker) Get(id string) (core.Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[id]
	return task, ok
}

// Board classifies the current collection against now.
func (t *Tracker) Board(now time.Time) core.Board {
	return core.Classify(t.Tasks(), now)
}

// Now exposes the tracker's clock so callers render views against the
// same time source the tracker mutates with.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Add creates a task due one interval from now and persists it.
func (t *Tracker) Add(ctx context.Context, event string, f core.Frequency) (core.Task, error) {
	if err := f.Validate(); err != nil {
		return core.Task{}, err
	}
	task := core.NewTask(core.NewID(), event, f, t.now())
	t.commit(ctx, task)
	return task, nil
}

// Update applies field changes to the task. A task deleted elsewhere in
// the meantime is a no-op, reported via ok=false.
func (t *Tracker) Update(ctx context.Context, id string, p core.Patch) (core.Task, bool, error) {
	if p.Frequency != nil {
		if err := p.Frequency.Validate(); err != nil {
			return core.Task{}, false, err
		}
	}
	task, ok := t.Get(id)
	if !ok {
		return core.Task{}, false, nil
	}
	task = core.ApplyEdit(task, p)
	t.commit(ctx, task)
	return task, true, nil
}

// Complete records a completion now and reschedules.
func (t *Tracker) Complete(ctx context.Context, id string) (core.Task, bool) {
	task, ok := t.Get(id)
	if !ok {
		return core.Task{}, false
	}
	task = core.Complete(task, t.now())
	t.commit(ctx, task)
	return task, true
}

// Skip pushes the next occurrence out from now without recording a
// completion.
func (t *Tracker) Skip(ctx context.Context, id string) (core.Task, bool) {
	task, ok := t.Get(id)
	if !ok {
		return core.Task{}, false
	}
	task = core.Skip(task, t.now())
	t.commit(ctx, task)
	return task, true
}

// Delete removes the task from memory and the store. Deleting an absent
// task is a no-op.
func (t *Tracker) Delete(ctx context.Context, id string) {
	t.mu.Lock()
	_, existed := t.tasks[id]
	delete(t.tasks, id)
	t.mu.Unlock()
	if existed {
		t.notifyWatchers()
	}
	if err := t.store.DeleteTask(ctx, id); err != nil {
		t.logger.Error("delete task", "task_id", id, "err", err)
	}
}

// commit applies the task to the in-memory collection, notifies
// watchers, then persists. Persistence failures are logged and absorbed:
// the next snapshot push corrects any divergence.
func (t *Tracker) commit(ctx context.Context, task core.Task) {
	t.mu.Lock()
	t.tasks[task.ID] = task
	t.mu.Unlock()
	t.notifyWatchers()
	if err := t.store.UpsertTask(ctx, &task); err != nil {
		t.logger.Error("persist task", "task_id", task.ID, "err", err)
	}
}

// Watch registers for change notifications. The channel receives a tick
// whenever the collection changes or the refresh tick fires; pending
// ticks coalesce. Cancel must be called when the consumer goes away.
func (t *Tracker) Watch() (<-chan struct{}, func()) {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	id := t.nextWatch
	t.nextWatch++
	ch := make(chan struct{}, 1)
	t.watchers[id] = ch
	cancel := func() {
		t.watchMu.Lock()
		defer t.watchMu.Unlock()
		if _, ok := t.watchers[id]; ok {
			delete(t.watchers, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (t *Tracker) notifyWatchers() {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	for _, ch := range t.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

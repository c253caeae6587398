package store

import (
	"context"

	"tendd/internal/core"
)

// Subscribe registers for full-collection snapshot pushes. Every write
// to the store re-reads the whole collection and delivers it to each
// subscriber; a slow subscriber only ever sees the latest snapshot
// (stale ones are dropped, never queued). The returned cancel func tears
// the subscription down and must be called exactly once.
func (s *Store) Subscribe() (<-chan []core.Task, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan []core.Task, 1)
	s.subs[id] = ch
	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// broadcast pushes the current collection to all subscribers. A failed
// read is swallowed: the write already succeeded and the next successful
// broadcast carries the same state.
func (s *Store) broadcast(ctx context.Context) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		// Latest-wins: drain the stale snapshot before delivering.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- tasks:
		default:
		}
	}
}

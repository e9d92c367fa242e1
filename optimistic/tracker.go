// Package optimistic tracks locally applied updates until the server confirms
// or rejects them, restoring the last known good value on failure.
package optimistic

import "sync"

type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

// Update is one optimistic change. Previous is the value to restore if it fails.
type Update[T any] struct {
	ID       uint64
	Previous T
	Next     T
	State    State
	Err      error
}

// Tracker holds the locally visible value and the updates still in flight.
type Tracker[T any] struct {
	mu       sync.Mutex
	current  T
	seq      uint64
	inflight map[uint64]*Update[T]
}

func NewTracker[T any](initial T) *Tracker[T] {
	return &Tracker[T]{current: initial, inflight: make(map[uint64]*Update[T])}
}

// Begin shows next immediately and returns the pending update.
func (t *Tracker[T]) Begin(next T) Update[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	u := &Update[T]{ID: t.seq, Previous: t.current, Next: next, State: StatePending}
	t.inflight[u.ID] = u
	t.current = next
	return *u
}

// Confirm settles update id with the value the server actually stored.
func (t *Tracker[T]) Confirm(id uint64, actual T) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.inflight[id]
	if !ok {
		return t.current
	}
	u.State = StateConfirmed
	delete(t.inflight, id)
	if id == t.seq {
		t.current = actual
	} else if n := t.successor(id); n != nil {
		n.Previous = actual
	}
	return t.current
}

// Fail rejects update id. The visible value rolls back only when no later
// update has replaced it; otherwise the later update inherits the rollback target.
func (t *Tracker[T]) Fail(id uint64, err error) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.inflight[id]
	if !ok {
		return t.current
	}
	u.State, u.Err = StateFailed, err
	delete(t.inflight, id)
	if id == t.seq {
		t.current = u.Previous
	} else if n := t.successor(id); n != nil {
		n.Previous = u.Previous
	}
	return t.current
}

// successor is the oldest in-flight update started after id.
func (t *Tracker[T]) successor(id uint64) *Update[T] {
	var next *Update[T]
	for _, u := range t.inflight {
		if u.ID > id && (next == nil || u.ID < next.ID) {
			next = u
		}
	}
	return next
}

// Do applies next optimistically, runs apply and settles the update with its result.
func (t *Tracker[T]) Do(next T, apply func() (T, error)) (T, error) {
	u := t.Begin(next)
	actual, err := apply()
	if err != nil {
		return t.Fail(u.ID, err), err
	}
	return t.Confirm(u.ID, actual), nil
}

func (t *Tracker[T]) Current() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Set replaces the visible value with authoritative state from the server
// when nothing is in flight. It reports whether the value was applied.
func (t *Tracker[T]) Set(v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inflight) > 0 {
		return false
	}
	t.current = v
	return true
}

// Pending counts updates awaiting the server.
func (t *Tracker[T]) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

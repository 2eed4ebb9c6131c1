package state

import "sync"

// entry is the per-key record. All fields are guarded by mu.
//
// The changed channel is the broadcast wakeup primitive: every committed
// mutation closes the current channel and installs a fresh one, waking
// every goroutine parked on the old channel at once. A waiter captures the
// channel inside the same critical section that reads the state, so either
// its snapshot already reflects a mutation or the channel it holds will be
// closed by that mutation. There is no window in between.
type entry[V any] struct {
	mu      sync.Mutex
	current V
	prev    V
	hasPrev bool
	version uint64
	removed bool
	changed chan struct{}
}

func newEntry[V any](value V) *entry[V] {
	return &entry[V]{
		current: value,
		changed: make(chan struct{}),
	}
}

// mutate commits fn(current) as the new current value: the displaced value
// becomes prev, the version increments by one, and all parked waiters are
// woken. Returns the displaced value and the new version. ok is false when
// the entry has already been removed, in which case nothing is mutated.
//
// If fn panics the entry is left untouched and no wakeup is broadcast.
func (e *entry[V]) mutate(fn func(V) V) (old V, version uint64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return old, 0, false
	}

	next := fn(e.current)
	old = e.current
	e.prev = e.current
	e.hasPrev = true
	e.current = next
	e.version++

	ch := e.changed
	e.changed = make(chan struct{})
	close(ch)

	return old, e.version, true
}

// markRemoved flags the entry as gone and broadcasts a final wakeup so
// parked waiters re-check, observe absence, and unblock. The channel is not
// replaced: any straggler still holding the entry wakes immediately.
func (e *entry[V]) markRemoved() V {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.removed = true
	close(e.changed)
	return e.current
}

// snapshot returns a consistent copy of the entry state together with the
// wakeup channel current at the time of the read. Taking both under one
// lock acquisition is the heart of the race-free wait protocol: any
// mutation committing after snapshot returns must close the returned
// channel.
func (e *entry[V]) snapshot() (snap Snapshot[V], removed bool, wake <-chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap.Current = e.current
	snap.Version = e.version
	if e.hasPrev {
		prev := e.prev
		snap.Previous = &prev
	}
	return snap, e.removed, e.changed
}

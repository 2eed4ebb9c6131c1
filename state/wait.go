package state

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Predicate decides whether a wait is satisfied by an entry's state. prev
// is nil until the entry's first mutation after creation; both arguments
// are copies, so a predicate can never alias entry internals.
//
// Predicates should be pure. Side effects are the caller's responsibility
// and are not synchronized by the store; panics propagate to the waiting
// caller.
type Predicate[V any] func(prev *V, curr V) bool

// WaitUntil parks the calling goroutine until pred returns true for the
// entry at key, the key is removed, or ctx is done.
//
// The loop is the check-subscribe-recheck protocol: each iteration takes a
// consistent snapshot of the entry together with its wakeup channel (one
// lock acquisition, see entry.snapshot), evaluates pred on the snapshot
// outside all locks, and parks on the channel only when the predicate is
// unsatisfied. A mutation committing at any point after the snapshot
// closes that exact channel, so no transition can be missed. Wakeups are
// broadcast and may be batched; the loop re-reads live state rather than
// trusting whatever triggered the wakeup.
//
// If pred is already satisfied at call time, WaitUntil returns nil without
// suspending. If the key is absent at call time or removed while waiting,
// it returns ErrKeyNotFound. Cancellation through ctx releases the waiter
// without touching the entry or any other waiter; there is no timeout
// beyond what ctx carries.
func (m *Map[K, V]) WaitUntil(ctx context.Context, key K, pred Predicate[V]) error {
	waitID := uuid.Must(uuid.NewV7()).String()

	m.metrics.RecordWaitStart()
	m.emit(ctx, EventWaitStart, map[string]any{
		"key":     key,
		"wait_id": waitID,
	})

	for {
		e, ok := m.lookup(key)
		if !ok {
			return m.waitKeyMissing(ctx, key, waitID)
		}

		snap, removed, wake := e.snapshot()
		if removed {
			return m.waitKeyMissing(ctx, key, waitID)
		}

		if pred(snap.Previous, snap.Current) {
			m.metrics.RecordWaitSatisfied()
			m.emit(ctx, EventWaitSatisfied, map[string]any{
				"key":     key,
				"wait_id": waitID,
				"version": snap.Version,
			})
			return nil
		}

		m.metrics.RecordWaiterParked(1)
		select {
		case <-wake:
			m.metrics.RecordWaiterParked(-1)
		case <-ctx.Done():
			m.metrics.RecordWaiterParked(-1)
			m.metrics.RecordWaitCancelled()
			m.emit(ctx, EventWaitCancelled, map[string]any{
				"key":     key,
				"wait_id": waitID,
			})
			return ctx.Err()
		}
	}
}

func (m *Map[K, V]) waitKeyMissing(ctx context.Context, key K, waitID string) error {
	m.metrics.RecordWaitKeyMissing()
	m.emit(ctx, EventWaitKeyMissing, map[string]any{
		"key":     key,
		"wait_id": waitID,
	})
	return fmt.Errorf("wait on key %v: %w", key, ErrKeyNotFound)
}

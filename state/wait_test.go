package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/awaitstate/state"
)

const waitTimeout = 5 * time.Second

// awaitResult collects a WaitUntil outcome with a deadline so a protocol
// bug shows up as a test failure instead of a hung test binary.
func awaitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("WaitUntil did not resolve in time (lost wakeup?)")
		return nil
	}
}

func TestWaitUntil_AlreadySatisfied(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("download", "finished")

	err := m.WaitUntil(context.Background(), "download", func(prev *string, curr string) bool {
		return curr == "finished"
	})
	if err != nil {
		t.Errorf("WaitUntil() on already-satisfied state error = %v, want nil", err)
	}
}

func TestWaitUntil_KeyMissing(t *testing.T) {
	m := state.New[string, string](nil)

	err := m.WaitUntil(context.Background(), "missing", func(*string, string) bool { return true })
	if !errors.Is(err, state.ErrKeyNotFound) {
		t.Errorf("WaitUntil() on missing key error = %v, want ErrKeyNotFound", err)
	}
}

func TestWaitUntil_DownloadScenario(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("download-1", "not-started")

	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(context.Background(), "download-1", func(prev *string, curr string) bool {
			return curr == "finished"
		})
	}()

	if _, err := m.Set("download-1", "started"); err != nil {
		t.Fatalf("Set(started) error = %v", err)
	}
	if _, err := m.Set("download-1", "finished"); err != nil {
		t.Fatalf("Set(finished) error = %v", err)
	}

	if err := awaitResult(t, done); err != nil {
		t.Errorf("WaitUntil() error = %v, want nil", err)
	}

	if curr, _ := m.Current("download-1"); curr != "finished" {
		t.Errorf("Current() = %q, want finished", curr)
	}
}

func TestWaitUntil_PredicateSeesPrevious(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("job", "queued")

	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(context.Background(), "job", func(prev *string, curr string) bool {
			return prev != nil && *prev == "running" && curr == "done"
		})
	}()

	m.Set("job", "running")
	m.Set("job", "done")

	if err := awaitResult(t, done); err != nil {
		t.Errorf("WaitUntil() error = %v, want nil", err)
	}
}

func TestWaitUntil_PredicateNilPreviousBeforeFirstMutation(t *testing.T) {
	m := state.New[string, int](nil)
	m.Put("k", 1)

	sawNil := false
	err := m.WaitUntil(context.Background(), "k", func(prev *int, curr int) bool {
		sawNil = prev == nil
		return true
	})
	if err != nil {
		t.Fatalf("WaitUntil() error = %v", err)
	}
	if !sawNil {
		t.Error("predicate should receive nil prev before the entry's first mutation")
	}
}

func TestWaitUntil_RemoveUnblocks(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("session", "open")

	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(context.Background(), "session", func(*string, string) bool {
			return false // never satisfied; only removal can unblock
		})
	}()

	// Give the waiter a moment to park before removing.
	time.Sleep(10 * time.Millisecond)
	m.Remove("session")

	if err := awaitResult(t, done); !errors.Is(err, state.ErrKeyNotFound) {
		t.Errorf("WaitUntil() after Remove error = %v, want ErrKeyNotFound", err)
	}
}

func TestWaitUntil_ContextCancellation(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("k", "pending")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(ctx, "k", func(*string, string) bool { return false })
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := awaitResult(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitUntil() after cancel error = %v, want context.Canceled", err)
	}

	// Cancellation must not corrupt the entry or disturb other waiters.
	if curr, ok := m.Current("k"); !ok || curr != "pending" {
		t.Errorf("Current() after cancelled wait = (%q, %v), want (pending, true)", curr, ok)
	}

	survivor := make(chan error, 1)
	go func() {
		survivor <- m.WaitUntil(context.Background(), "k", func(prev *string, curr string) bool {
			return curr == "ready"
		})
	}()
	m.Set("k", "ready")
	if err := awaitResult(t, survivor); err != nil {
		t.Errorf("waiter after a cancelled sibling error = %v, want nil", err)
	}
}

func TestWaitUntil_ContextDeadline(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("k", "pending")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.WaitUntil(ctx, "k", func(*string, string) bool { return false })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitUntil() error = %v, want context.DeadlineExceeded", err)
	}
}

// The central property: a mutation racing the wait's subscription must
// never be missed. The satisfying Set fires with no synchronization
// against the waiter, so across iterations it lands before, during, and
// after the waiter's first predicate check.
func TestWaitUntil_NoLostWakeup(t *testing.T) {
	m := state.New[int, int](nil)

	for i := 0; i < 200; i++ {
		key := i // fresh key per round, no cross-talk
		m.Put(key, 0)

		done := make(chan error, 1)
		go func() {
			done <- m.WaitUntil(context.Background(), key, func(prev *int, curr int) bool {
				return curr == 1
			})
		}()

		go m.Set(key, 1)

		if err := awaitResult(t, done); err != nil {
			t.Fatalf("round %d: WaitUntil() error = %v", i, err)
		}
	}
}

func TestWaitUntil_BroadcastWakesAllWaiters(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("phase", "loading")

	const waiters = 16
	var wg sync.WaitGroup
	errs := make(chan error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.WaitUntil(context.Background(), "phase", func(prev *string, curr string) bool {
				return curr == "ready"
			})
		}()
	}

	time.Sleep(10 * time.Millisecond)
	m.Set("phase", "ready")

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(waitTimeout):
		t.Fatal("not all waiters woke on broadcast")
	}

	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("waiter error = %v, want nil", err)
		}
	}
}

func TestWaitUntil_UnsatisfyingMutationsKeepWaiting(t *testing.T) {
	m := state.New[string, int](nil)
	m.Put("counter", 0)

	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(context.Background(), "counter", func(prev *int, curr int) bool {
			return curr >= 5
		})
	}()

	// A burst of intermediate transitions; the waiter must re-check on each
	// wakeup and only resolve at the satisfying one.
	for i := 1; i <= 5; i++ {
		if _, err := m.Set("counter", i); err != nil {
			t.Fatalf("Set(%d) error = %v", i, err)
		}
	}

	if err := awaitResult(t, done); err != nil {
		t.Errorf("WaitUntil() error = %v, want nil", err)
	}
}

func TestWaitUntil_IndependentKeysDoNotWakeEachOther(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("a", "pending")
	m.Put("b", "pending")

	evaluations := make(chan struct{}, 64)
	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(context.Background(), "a", func(prev *string, curr string) bool {
			evaluations <- struct{}{}
			return curr == "ready"
		})
	}()

	<-evaluations // initial check has happened

	// Mutations on an unrelated key must not wake the waiter on "a".
	for i := 0; i < 10; i++ {
		m.Set("b", "ready")
	}
	select {
	case <-evaluations:
		t.Error("waiter on key a was woken by mutations on key b")
	case <-time.After(50 * time.Millisecond):
	}

	m.Set("a", "ready")
	if err := awaitResult(t, done); err != nil {
		t.Errorf("WaitUntil() error = %v, want nil", err)
	}
}

func TestWaitUntil_Metrics(t *testing.T) {
	m := state.New[string, string](nil)
	m.Put("k", "pending")

	// Satisfied immediately.
	m.WaitUntil(context.Background(), "k", func(*string, string) bool { return true })

	// Key missing.
	m.WaitUntil(context.Background(), "absent", func(*string, string) bool { return true })

	// Cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(ctx, "k", func(*string, string) bool { return false })
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	awaitResult(t, done)

	snap := m.Metrics()
	if snap.WaitsStarted != 3 {
		t.Errorf("WaitsStarted = %d, want 3", snap.WaitsStarted)
	}
	if snap.WaitsSatisfied != 1 {
		t.Errorf("WaitsSatisfied = %d, want 1", snap.WaitsSatisfied)
	}
	if snap.WaitsKeyMissing != 1 {
		t.Errorf("WaitsKeyMissing = %d, want 1", snap.WaitsKeyMissing)
	}
	if snap.WaitsCancelled != 1 {
		t.Errorf("WaitsCancelled = %d, want 1", snap.WaitsCancelled)
	}
	if snap.WaitersParked != 0 {
		t.Errorf("WaitersParked = %d, want 0 after all waits resolved", snap.WaitersParked)
	}
}

func TestWaitUntil_EmitsEvents(t *testing.T) {
	observer := &captureObserver{}
	m := state.New[string, string](observer)
	m.Put("download", "not-started")

	done := make(chan error, 1)
	go func() {
		done <- m.WaitUntil(context.Background(), "download", func(prev *string, curr string) bool {
			return curr == "finished"
		})
	}()

	time.Sleep(10 * time.Millisecond)
	m.Set("download", "finished")
	awaitResult(t, done)

	starts := observer.byType(state.EventWaitStart)
	if len(starts) != 1 {
		t.Fatalf("wait.start emitted %d times, want 1", len(starts))
	}
	satisfied := observer.byType(state.EventWaitSatisfied)
	if len(satisfied) != 1 {
		t.Fatalf("wait.satisfied emitted %d times, want 1", len(satisfied))
	}

	startID, ok := starts[0].Data["wait_id"].(string)
	if !ok || startID == "" {
		t.Error("wait.start should carry a non-empty wait_id")
	}
	if satisfied[0].Data["wait_id"] != startID {
		t.Error("wait.satisfied should carry the same wait_id as wait.start")
	}
}

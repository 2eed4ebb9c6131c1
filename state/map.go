package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tailored-agentic-units/awaitstate/observability"
)

// Snapshot is a consistent copy of one entry's state. Previous is nil until
// the entry's first mutation after creation; when set it points to a copy,
// never into the entry itself.
type Snapshot[V any] struct {
	Previous *V
	Current  V
	Version  uint64
}

// Map is a thread-safe mapping from keys to versioned state entries.
//
// The map-level lock is held only to look up, insert, or delete entries;
// all state access goes through a per-entry lock, so operations on
// different keys never block each other. A Map must not be copied after
// first use. Share one instance by reference between the tasks that
// coordinate through it.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]

	name     string
	observer observability.Observer
	metrics  *Metrics
}

// New creates an empty Map with the given observer.
//
// If observer is nil, NoOpObserver is used, keeping mutation and wait paths
// free of logging cost.
func New[K comparable, V any](observer observability.Observer) *Map[K, V] {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	return &Map[K, V]{
		entries:  make(map[K]*entry[V]),
		name:     "default",
		observer: observer,
		metrics:  NewMetrics(),
	}
}

// NewFromConfig creates a Map from a Config, resolving the observer by name
// through the observability registry. Zero-valued fields fall back to
// DefaultConfig.
func NewFromConfig[K comparable, V any](cfg Config) (*Map[K, V], error) {
	resolved := DefaultConfig()
	resolved.Merge(&cfg)

	observer, err := observability.GetObserver(resolved.Observer)
	if err != nil {
		return nil, fmt.Errorf("resolve observer for map %q: %w", resolved.Name, err)
	}

	return &Map[K, V]{
		entries:  make(map[K]*entry[V], resolved.Capacity),
		name:     resolved.Name,
		observer: observer,
		metrics:  NewMetrics(),
	}, nil
}

// Put inserts or overwrites the value for key.
//
// On first insertion the entry starts at version 0 with no previous value
// and replaced is false. On an existing key Put behaves exactly like Set
// and additionally returns the displaced current value.
func (m *Map[K, V]) Put(key K, value V) (prev V, replaced bool) {
	for {
		if e, ok := m.lookup(key); ok {
			old, version, alive := e.mutate(func(V) V { return value })
			if !alive {
				// Entry was removed between lookup and mutation; insert fresh.
				continue
			}

			m.metrics.RecordPut()
			m.emit(context.Background(), EventPut, map[string]any{
				"key":     key,
				"version": version,
			})
			return old, true
		}

		m.mu.Lock()
		if _, exists := m.entries[key]; exists {
			m.mu.Unlock()
			continue
		}
		m.entries[key] = newEntry(value)
		m.mu.Unlock()

		m.metrics.RecordPut()
		m.metrics.RecordEntry(1)
		m.emit(context.Background(), EventPut, map[string]any{
			"key":     key,
			"version": uint64(0),
		})

		var zero V
		return zero, false
	}
}

// Set updates the value for an existing key: the displaced current value
// becomes the entry's previous value, the version increments by one, and
// every waiter parked on the key is woken.
//
// Returns the displaced current value, or ErrKeyNotFound if the key was
// never inserted or has been removed.
func (m *Map[K, V]) Set(key K, value V) (V, error) {
	return m.mutateExisting(key, EventSet, func(V) V { return value })
}

// Update atomically replaces the value for an existing key with fn(current).
// It counts as a single mutation: same previous/version/wakeup semantics as
// Set. fn runs under the entry lock and must not block or call back into
// the Map.
func (m *Map[K, V]) Update(key K, fn func(V) V) (V, error) {
	return m.mutateExisting(key, EventUpdate, fn)
}

func (m *Map[K, V]) mutateExisting(key K, eventType observability.EventType, fn func(V) V) (V, error) {
	var zero V

	e, ok := m.lookup(key)
	if !ok {
		return zero, fmt.Errorf("mutate key %v: %w", key, ErrKeyNotFound)
	}

	old, version, alive := e.mutate(fn)
	if !alive {
		return zero, fmt.Errorf("mutate key %v: %w", key, ErrKeyNotFound)
	}

	if eventType == EventUpdate {
		m.metrics.RecordUpdate()
	} else {
		m.metrics.RecordSet()
	}
	m.emit(context.Background(), eventType, map[string]any{
		"key":     key,
		"version": version,
	})
	return old, nil
}

// Current returns the latest committed value for key.
func (m *Map[K, V]) Current(key K) (V, bool) {
	snap, ok := m.Snapshot(key)
	return snap.Current, ok
}

// Previous returns the value the entry held before its most recent
// mutation. ok is false if the key is absent or the entry has never been
// mutated since creation.
func (m *Map[K, V]) Previous(key K) (V, bool) {
	snap, ok := m.Snapshot(key)
	if !ok || snap.Previous == nil {
		var zero V
		return zero, false
	}
	return *snap.Previous, true
}

// Snapshot returns a mutually consistent (previous, current, version)
// triple for key, or ok=false if the key is absent.
func (m *Map[K, V]) Snapshot(key K) (Snapshot[V], bool) {
	e, ok := m.lookup(key)
	if !ok {
		return Snapshot[V]{}, false
	}

	snap, removed, _ := e.snapshot()
	if removed {
		return Snapshot[V]{}, false
	}
	return snap, true
}

// Remove deletes the entry for key, returning its last current value. Every
// waiter parked on the key receives a final wakeup, observes the absence,
// and unblocks with ErrKeyNotFound.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	m.mu.Unlock()

	if !ok {
		var zero V
		return zero, false
	}

	last := e.markRemoved()
	m.metrics.RecordRemove()
	m.metrics.RecordEntry(-1)
	m.emit(context.Background(), EventRemove, map[string]any{
		"key": key,
	})
	return last, true
}

// Len returns the number of entries currently in the map.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Keys returns the keys currently in the map, in no particular order.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]K, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys
}

// Metrics returns a snapshot of the map's operation counters.
func (m *Map[K, V]) Metrics() MetricsSnapshot {
	return m.metrics.Snapshot()
}

func (m *Map[K, V]) lookup(key K) (*entry[V], bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	return e, ok
}

func (m *Map[K, V]) emit(ctx context.Context, eventType observability.EventType, data map[string]any) {
	data["map"] = m.name
	m.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      data,
	})
}

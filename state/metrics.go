package state

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of a Map's operation counters.
type MetricsSnapshot struct {
	Entries int64

	Puts    int64
	Sets    int64
	Updates int64
	Removes int64

	WaitsStarted    int64
	WaitsSatisfied  int64
	WaitsCancelled  int64
	WaitsKeyMissing int64
	WaitersParked   int64
}

// Metrics tracks store activity with atomic counters. All methods are safe
// for concurrent use.
type Metrics struct {
	entries atomic.Int64

	puts    atomic.Int64
	sets    atomic.Int64
	updates atomic.Int64
	removes atomic.Int64

	waitsStarted    atomic.Int64
	waitsSatisfied  atomic.Int64
	waitsCancelled  atomic.Int64
	waitsKeyMissing atomic.Int64
	waitersParked   atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordEntry(delta int) {
	m.entries.Add(int64(delta))
}

func (m *Metrics) RecordPut() {
	m.puts.Add(1)
}

func (m *Metrics) RecordSet() {
	m.sets.Add(1)
}

func (m *Metrics) RecordUpdate() {
	m.updates.Add(1)
}

func (m *Metrics) RecordRemove() {
	m.removes.Add(1)
}

func (m *Metrics) RecordWaitStart() {
	m.waitsStarted.Add(1)
}

func (m *Metrics) RecordWaitSatisfied() {
	m.waitsSatisfied.Add(1)
}

func (m *Metrics) RecordWaitCancelled() {
	m.waitsCancelled.Add(1)
}

func (m *Metrics) RecordWaitKeyMissing() {
	m.waitsKeyMissing.Add(1)
}

func (m *Metrics) RecordWaiterParked(delta int) {
	m.waitersParked.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Entries:         m.entries.Load(),
		Puts:            m.puts.Load(),
		Sets:            m.sets.Load(),
		Updates:         m.updates.Load(),
		Removes:         m.removes.Load(),
		WaitsStarted:    m.waitsStarted.Load(),
		WaitsSatisfied:  m.waitsSatisfied.Load(),
		WaitsCancelled:  m.waitsCancelled.Load(),
		WaitsKeyMissing: m.waitsKeyMissing.Load(),
		WaitersParked:   m.waitersParked.Load(),
	}
}

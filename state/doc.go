// Package state provides a concurrent, keyed state-coordination store.
//
// Producers insert and mutate named values through Map.Put and Map.Set;
// consumers call Map.WaitUntil to park until a caller-supplied predicate
// over the entry's (previous, current) value pair holds. Waiting never
// polls: each entry carries a broadcast wakeup channel that every mutation
// closes, and the wait loop captures that channel in the same critical
// section as its state snapshot, so a transition can never slip between a
// waiter's check and its subscription.
//
// Every entry tracks the value it held before the most recent mutation and
// a version counter that increments by exactly one per mutation. Operations
// on different keys never serialize against each other; operations on the
// same key are linearized by a per-entry lock.
//
// The store is process-local and lives as long as its owning reference.
// Timeout and cancellation are composed externally through the context
// passed to WaitUntil.
package state

package state

import "errors"

// Sentinel errors for store operations.
var (
	// ErrKeyNotFound is returned by Set, Update, and WaitUntil when the key
	// was never inserted or has been removed.
	ErrKeyNotFound = errors.New("key not found")
)

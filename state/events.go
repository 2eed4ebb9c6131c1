package state

import "github.com/tailored-agentic-units/awaitstate/observability"

const (
	// Store mutations
	EventPut    observability.EventType = "state.put"
	EventSet    observability.EventType = "state.set"
	EventUpdate observability.EventType = "state.update"
	EventRemove observability.EventType = "state.remove"

	// Wait lifecycle
	EventWaitStart      observability.EventType = "wait.start"
	EventWaitSatisfied  observability.EventType = "wait.satisfied"
	EventWaitCancelled  observability.EventType = "wait.cancelled"
	EventWaitKeyMissing observability.EventType = "wait.key_missing"
)

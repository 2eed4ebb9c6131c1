package observability

import "context"

// NoOpObserver discards all events with zero overhead. It is the default
// observer for stores constructed without one, keeping the hot mutation
// path free of logging cost.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

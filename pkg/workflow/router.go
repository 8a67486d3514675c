package workflow

import (
	"sync"

	"github.com/stratoml/strato/pkg/events"
)

// Router delivers inbound platform events to the steps awaiting them.
// Registration is keyed by the external correlation id the delegating
// handler returned. Delivery is best-effort: events for correlation ids
// with no live waiter are reported undelivered so the caller can decide
// whether a restart recovery pass is needed.
type Router struct {
	mu      sync.Mutex
	waiters map[string]chan *events.PlatformEvent
}

func NewRouter() *Router {
	return &Router{
		waiters: make(map[string]chan *events.PlatformEvent),
	}
}

// Register opens a delivery channel for correlationID. The returned
// cancel func must be called once the waiter is done.
func (r *Router) Register(correlationID string) (<-chan *events.PlatformEvent, func()) {
	ch := make(chan *events.PlatformEvent, 8)

	r.mu.Lock()
	r.waiters[correlationID] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		delete(r.waiters, correlationID)
		r.mu.Unlock()
	}

	return ch, cancel
}

// Dispatch hands the event to the registered waiter, reporting whether
// one existed. A waiter with a full buffer drops the event rather than
// blocking the bus consumer.
func (r *Router) Dispatch(event *events.PlatformEvent) bool {
	r.mu.Lock()
	ch, ok := r.waiters[event.CorrelationID()]
	r.mu.Unlock()

	if !ok {
		return false
	}

	select {
	case ch <- event:
	default:
	}

	return true
}

// Waiting reports whether a live waiter exists for correlationID.
func (r *Router) Waiting(correlationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.waiters[correlationID]

	return ok
}

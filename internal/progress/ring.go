package progress

import "sync"

// eventRing is a fixed-size ring of recent events for one process, replayed
// to subscribers that connect after events were emitted. When full, the
// oldest event is overwritten.
type eventRing struct {
	mu     sync.RWMutex
	events []Event
	size   int
	head   int
	full   bool
}

func newEventRing(size int) *eventRing {
	if size <= 0 {
		size = 32
	}
	return &eventRing{
		events: make([]Event, size),
		size:   size,
	}
}

// Append records an event, overwriting the oldest when the ring is full.
func (r *eventRing) Append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.head == 0 {
		r.full = true
	}
}

// Snapshot returns the buffered events in emission order.
func (r *eventRing) Snapshot() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]Event, r.head)
		copy(out, r.events[:r.head])
		return out
	}

	out := make([]Event, 0, r.size)
	out = append(out, r.events[r.head:]...)
	out = append(out, r.events[:r.head]...)
	return out
}

// Len returns the number of buffered events.
func (r *eventRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.full {
		return r.size
	}
	return r.head
}

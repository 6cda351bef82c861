package session

import (
	"sync"

	"github.com/relayforge/agentgate/pkg/protocol"
)

// Ring is a bounded, ordered buffer of the most recent session events.
// Once full the oldest event is evicted first; retained events always stay
// in ascending seq order and are never reordered.
type Ring struct {
	mu    sync.RWMutex
	items []*protocol.Event
	size  int
	head  int
	count int
}

// NewRing creates a ring buffer retaining at most size events
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 1
	}
	return &Ring{
		items: make([]*protocol.Event, size),
		size:  size,
	}
}

// Append adds an event, evicting the oldest when full
func (r *Ring) Append(ev *protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tail := (r.head + r.count) % r.size
	r.items[tail] = ev
	if r.count == r.size {
		r.head = (r.head + 1) % r.size
	} else {
		r.count++
	}
}

// After returns all retained events with seq greater than lastSeq,
// in ascending seq order.
func (r *Ring) After(lastSeq int64) []*protocol.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*protocol.Event, 0, r.count)
	for i := 0; i < r.count; i++ {
		ev := r.items[(r.head+i)%r.size]
		if ev.Seq > lastSeq {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of retained events
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Restore replaces the buffer contents with the given events, assumed to be
// in ascending seq order. Used when rebuilding a session from a mirror.
func (r *Ring) Restore(events []*protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.head = 0
	r.count = 0
	start := 0
	if len(events) > r.size {
		start = len(events) - r.size
	}
	for i := start; i < len(events); i++ {
		r.items[r.count] = events[i]
		r.count++
	}
}

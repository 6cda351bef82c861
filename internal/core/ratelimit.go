package core

import (
	"sync"
	"time"
)

// rateLimiter is a per-connection fixed-interval sliding window, not a token
// bucket: bursts are permitted up to the count threshold within any trailing
// interval.
type rateLimiter struct {
	max      int
	interval time.Duration

	mu     sync.Mutex
	stamps []time.Time
}

func newRateLimiter(max int, interval time.Duration) *rateLimiter {
	return &rateLimiter{max: max, interval: interval}
}

// Admit records an inbound message at now and reports whether it is allowed.
// The receipt is recorded even when rejected, matching the push-then-count
// window semantics.
func (l *rateLimiter) Admit(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stamps = append(l.stamps, now)

	cutoff := now.Add(-l.interval)
	evict := 0
	for evict < len(l.stamps) && l.stamps[evict].Before(cutoff) {
		evict++
	}
	l.stamps = l.stamps[evict:]

	return len(l.stamps) <= l.max
}

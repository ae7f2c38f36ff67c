// Package resilience provides the rate limiting and retry primitives used by
// every call to the external vector index and graph backend.
package resilience

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum spacing between permitted calls.
// A single instance is shared across all concurrent vector index calls, so
// Wait is safe for concurrent use and serializes permit grants under a lock.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter creates a rate limiter permitting requestsPerSecond calls.
// A non-positive rate disables limiting entirely.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	var interval time.Duration
	if requestsPerSecond > 0 {
		interval = time.Duration(float64(time.Second) / requestsPerSecond)
	}
	return &RateLimiter{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks the caller until at least 1/requestsPerSecond has elapsed since
// the last permitted call, then records the permit.
func (l *RateLimiter) Wait() {
	if l.interval <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.last.IsZero() {
		if wait := l.interval - now.Sub(l.last); wait > 0 {
			l.sleep(wait)
			now = now.Add(wait)
		}
	}
	l.last = now
}

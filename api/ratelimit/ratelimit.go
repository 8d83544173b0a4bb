// Package ratelimit provides a sliding-window attempt counter keyed by
// source address.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most `limit` events per key within a rolling window.
// It is safe for concurrent use.
type Limiter struct {
	lock   sync.Mutex
	limit  int
	window time.Duration
	events map[string][]time.Time

	// Overridable for tests.
	now func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		events: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records an attempt for the given key and reports whether it is
// within the limit. Rejected attempts are not recorded, so a key that keeps
// retrying is not locked out forever.
func (limiter *Limiter) Allow(key string) bool {
	limiter.lock.Lock()
	defer limiter.lock.Unlock()

	cutoff := limiter.now().Add(-limiter.window)

	kept := limiter.events[key][:0]
	for _, when := range limiter.events[key] {
		if when.After(cutoff) {
			kept = append(kept, when)
		}
	}

	if len(kept) >= limiter.limit {
		limiter.events[key] = kept
		return false
	}

	limiter.events[key] = append(kept, limiter.now())
	return true
}

// Size returns the number of keys with at least one attempt still inside the
// window, dropping the rest.
func (limiter *Limiter) Size() int {
	limiter.lock.Lock()
	defer limiter.lock.Unlock()

	cutoff := limiter.now().Add(-limiter.window)

	for key, events := range limiter.events {
		stale := true
		for _, when := range events {
			if when.After(cutoff) {
				stale = false
				break
			}
		}

		if stale {
			delete(limiter.events, key)
		}
	}

	return len(limiter.events)
}

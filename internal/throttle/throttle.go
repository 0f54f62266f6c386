// Package throttle rate-limits repeated messages by key.
package throttle

import (
	"sync"
	"time"
)

// Throttle remembers when each key was last let through. It lives as long as
// the process; a restart starts with an empty map.
type Throttle struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// New returns an empty throttle using the wall clock.
func New() *Throttle {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(now func() time.Time) *Throttle {
	return &Throttle{
		last: make(map[string]time.Time),
		now:  now,
	}
}

// Allow reports whether key may pass and, if so, stamps it.
// An empty key is never throttled.
func (t *Throttle) Allow(key string, cooldown time.Duration) bool {
	if key == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	t.last[key] = now
	return true
}

// Reset forgets every key.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = make(map[string]time.Time)
}

// ratelimit.go - Fixed-window per-client admission control
package api

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// FixedWindowStore admits at most limit requests per identifier in each
// window. Over-limit requests are rejected, never queued. It implements
// echo's middleware.RateLimiterStore.
type FixedWindowStore struct {
	mu        sync.Mutex
	limit     int
	period    time.Duration
	clients   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

// NewFixedWindowStore creates a store allowing limit requests per period.
func NewFixedWindowStore(limit int, period time.Duration) *FixedWindowStore {
	return &FixedWindowStore{
		limit:   limit,
		period:  period,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records a request from identifier and reports whether it is admitted.
func (s *FixedWindowStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	w, ok := s.clients[identifier]
	if !ok || now.Sub(w.start) >= s.period {
		w = &window{start: now}
		s.clients[identifier] = w
	}
	if w.count >= s.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Remaining returns how many requests identifier may still make in its
// current window.
func (s *FixedWindowStore) Remaining(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.clients[identifier]
	if !ok || s.now().Sub(w.start) >= s.period {
		return s.limit
	}
	return s.limit - w.count
}

// sweep drops expired windows, at most once per period.
func (s *FixedWindowStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.period {
		return
	}
	s.lastSweep = now
	for id, w := range s.clients {
		if now.Sub(w.start) >= s.period {
			delete(s.clients, id)
		}
	}
}

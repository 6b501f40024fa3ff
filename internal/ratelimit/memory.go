package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is a per-key token bucket limiter held in process memory.
//
// Each key gets a bucket of `requests` tokens refilled evenly over `window`,
// so a client may burst up to `requests` and then continues at the refill
// rate. A bucket idle for a whole window is full again and therefore no
// different from a fresh one; such buckets are swept to bound memory.
type Memory struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemory creates a limiter allowing requests per window for every key.
func NewMemory(requests int, window time.Duration) *Memory {
	if requests < 1 {
		requests = 1
	}
	return &Memory{
		limit:     rate.Every(window / time.Duration(requests)),
		burst:     requests,
		idleAfter: window,
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

// WithClock replaces the clock. Used by tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	m.lastSweep = now()
	return m
}

// Allow implements Limiter. It never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	// Reserve-then-cancel gives us the wait time without consuming a token
	// on rejection.
	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, m.idleAfter, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// sweep drops idle buckets at most once per idle period. Caller holds mu.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.idleAfter {
		return
	}
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) >= m.idleAfter {
			delete(m.buckets, key)
		}
	}
	m.lastSweep = now
}

// size reports how many keys are tracked.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

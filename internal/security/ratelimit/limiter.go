// Package ratelimit provides a keyed token-bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key (client IP for login).
// Idle keys are pruned lazily on Allow; there is no background goroutine.
type Limiter struct {
	mu         sync.Mutex
	limiters   map[string]*entry
	limit      rate.Limit
	burst      int
	idleAfter  time.Duration
	lastPruned time.Time
	now        func() time.Time
}

// NewLimiter allows perMinute requests per key with the given burst.
// perMinute <= 0 disables limiting.
func NewLimiter(perMinute float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	return &Limiter{
		limiters:  make(map[string]*entry),
		limit:     limit,
		burst:     burst,
		idleAfter: 15 * time.Minute,
		now:       time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	now := l.now()
	l.pruneLocked(now)
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len reports how many keys are tracked
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPruned) < time.Minute {
		return
	}
	l.lastPruned = now
	cutoff := now.Add(-l.idleAfter)
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

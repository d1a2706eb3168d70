// Package ratelimit limits how often a member may perform an action such as sending chat messages.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a key's limiter may go unused before it's forgotten.
const idleAfter = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token bucket per key allowing perMinute events per minute with bursts of up to burst events.
type Limiter struct {
	mu          sync.Mutex
	limiters    map[string]*entry
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
	now         func() time.Time
}

// New creates a Limiter allowing perMinute events per minute per key. A non-positive perMinute disables limiting.
func New(perMinute, burst int) *Limiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / time.Minute.Seconds())
	}
	return &Limiter{
		mu:          sync.Mutex{},
		limiters:    map[string]*entry{},
		limit:       limit,
		burst:       max(burst, 1),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether an event for key may happen now. If not, it also returns how long to wait until it may.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeCleanup(now)

	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
		l.limiters[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	reservation := e.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return false, delay
}

// maybeCleanup forgets limiters of keys that haven't been seen for a while. Must be called with mu held.
func (l *Limiter) maybeCleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < idleAfter {
		return
	}
	l.lastCleanup = now
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) >= idleAfter {
			delete(l.limiters, key)
		}
	}
}

// Len returns the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

package ratelimit

import "time"

// SetClock replaces the time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	l.lastCleanup = now()
}

// Package ratelimit caps daily AI request volume and paces successive calls.
package ratelimit

import (
	"sync"
	"time"

	"github.com/topicradar/topicradar/internal/logger"
)

// Limiter enforces a daily budget on AI requests plus a minimum interval
// between consecutive calls, keeping the free-tier quota alive across the
// whole day instead of burning it in one refresh run.
type Limiter struct {
	mu          sync.Mutex
	count       int
	max         int // 0 = unlimited
	minInterval time.Duration
	lastCall    time.Time
	resetAt     time.Time
}

// New creates a Limiter with a daily budget and a pacing interval.
func New(maxPerDay int, minInterval time.Duration) *Limiter {
	return &Limiter{
		max:         maxPerDay,
		minInterval: minInterval,
		resetAt:     time.Now().Add(24 * time.Hour),
	}
}

// Acquire blocks for pacing and consumes one budget slot. It returns false
// when the daily budget is exhausted.
func (l *Limiter) Acquire() bool {
	l.mu.Lock()

	if time.Now().After(l.resetAt) {
		l.count = 0
		l.resetAt = time.Now().Add(24 * time.Hour)
	}

	if l.max > 0 && l.count >= l.max {
		l.mu.Unlock()
		logger.Warn("AI request budget exhausted", "used", l.count, "max", l.max)
		return false
	}
	l.count++

	wait := l.minInterval - time.Since(l.lastCall)
	l.lastCall = time.Now().Add(wait)
	l.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
	return true
}

// Used returns the number of budget slots consumed today.
func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleSweepInterval = 10 * time.Minute

// MemoryLimiter keeps one token bucket per key in process. It is used when
// no Redis is configured, so quotas are per instance.
type MemoryLimiter struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiter allows limit requests per window for each key, refilled
// evenly across the window.
func NewMemoryLimiter(limit int, window time.Duration) (*MemoryLimiter, error) {
	if limit <= 0 || window < time.Millisecond {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &MemoryLimiter{
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}, nil
}

// Allow implements Limiter. A rejected request does not consume a token.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	now := l.now()
	lim := l.limiter(normalizeKey(key), now)
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *MemoryLimiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > idleSweepInterval {
		// A full bucket behaves like a fresh one, so it can be dropped.
		for k, lim := range l.limiters {
			if lim.TokensAt(now) >= float64(l.burst) {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a process-local fixed window limiter
type MemoryLimiter struct {
	mu        sync.Mutex
	config    Config
	windows   map[string]*window
	now       func() time.Time
	lastSweep time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-memory limiter
func NewMemoryLimiter(config Config) *MemoryLimiter {
	return newMemoryLimiter(config, time.Now)
}

func newMemoryLimiter(config Config, now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		windows: make(map[string]*window),
		now:     now,
	}
}

// Allow records one request for key
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.config.Window)}
		l.windows[key] = w
	}
	w.count++

	return decide(l.config.Quota, w.count, w.resetAt.Sub(now)), nil
}

// sweep drops finished windows at most once per window length
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.config.Window {
		return
	}
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
	l.lastSweep = now
}

// Close is a no-op
func (l *MemoryLimiter) Close() error {
	return nil
}

var _ Limiter = (*MemoryLimiter)(nil)

package middlewares

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter lets each key through at most once per window. It absorbs
// double-clicked checkout buttons.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*limiterEntry
	swept   time.Time
	now     func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{
		window:  window,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *Limiter) Window() time.Duration { return l.window }

// Allow reports whether key may proceed now and, if so, starts its window.
func (l *Limiter) Allow(key string) bool {
	return l.allow(key, l.now())
}

func (l *Limiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	// drop idle limiters so the map does not grow with every session
	if now.Sub(l.swept) > time.Minute {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.window {
				delete(l.entries, k)
			}
		}
		l.swept = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

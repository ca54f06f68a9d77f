package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdle = 10 * time.Minute

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter keeps one token bucket per key, e.g. per client address.
type Limiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu     sync.Mutex
	m      map[string]*entry
	lastGC time.Time
}

type Option func(*Limiter)

// WithIdle sets how long an unused key is kept.
func WithIdle(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idle = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(perSec float64, burst int, opts ...Option) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		limit: rate.Limit(perSec),
		burst: burst,
		idle:  defaultIdle,
		now:   time.Now,
		m:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	l.gc(now)
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// gc drops idle keys at most once per idle period. Caller holds mu.
func (l *Limiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < l.idle {
		return
	}
	l.lastGC = now
	for k, e := range l.m {
		if now.Sub(e.seen) >= l.idle {
			delete(l.m, k)
		}
	}
}

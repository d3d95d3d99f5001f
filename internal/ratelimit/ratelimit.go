package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrAcquireTimeout is returned when a token does not become available
// within the limiter's acquire timeout.
var ErrAcquireTimeout = errors.New("ratelimit: acquire timed out")

// Limiter throttles outbound calls per resource key ("scrape:indeed",
// "llm", "smtp"). One instance is shared by every request so global
// throttling holds across concurrent pipelines.
type Limiter struct {
	mu             sync.Mutex
	buckets        map[string]*rate.Limiter
	perMinute      map[string]int
	defaultPerMin  int
	acquireTimeout time.Duration
}

// New creates a limiter. perMinute maps resource keys to their allowed
// calls per minute; keys not listed fall back to defaultPerMinute.
func New(perMinute map[string]int, defaultPerMinute int, acquireTimeout time.Duration) *Limiter {
	if defaultPerMinute <= 0 {
		defaultPerMinute = 60
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 30 * time.Second
	}
	return &Limiter{
		buckets:        make(map[string]*rate.Limiter),
		perMinute:      perMinute,
		defaultPerMin:  defaultPerMinute,
		acquireTimeout: acquireTimeout,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	perMin := l.defaultPerMin
	if v, ok := l.perMinute[key]; ok && v > 0 {
		perMin = v
	}
	b := rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin)
	l.buckets[key] = b
	return b
}

// Acquire blocks until a token for key is available. It fails with
// ErrAcquireTimeout when the wait exceeds the configured timeout, or with
// the context's error when the caller is cancelled first.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.acquireTimeout)
	defer cancel()

	if err := l.bucket(key).Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrAcquireTimeout
	}
	return nil
}

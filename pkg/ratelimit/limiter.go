package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter blocks callers until a request fits the budget
type Limiter interface {
	// Allow records a request if one fits right now
	Allow() bool
	// Wait blocks until a request fits or ctx is done
	Wait(ctx context.Context) error
	// Reset forgets all recorded requests
	Reset()
}

// Window is a sliding window limiter: at most max requests within any span
// of size.
type Window struct {
	size     time.Duration
	max      int
	requests []time.Time
	mu       sync.Mutex

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWindow creates a limiter allowing n requests per size
func NewWindow(n int, size time.Duration) *Window {
	if n < 1 {
		n = 1
	}
	return &Window{
		size:     size,
		max:      n,
		requests: make([]time.Time, 0, n),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// PerMinute is shorthand for NewWindow(n, time.Minute)
func PerMinute(n int) *Window {
	return NewWindow(n, time.Minute)
}

// Allow checks if a request can proceed
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.reserve()
	return ok
}

// Wait blocks until a request is allowed
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		delay, ok := w.reserve()
		w.mu.Unlock()

		if ok {
			return nil
		}
		if err := w.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Reset clears all recorded requests
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.requests = w.requests[:0]
}

// InWindow returns how many requests currently count against the budget
func (w *Window) InWindow() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(w.now())
	return len(w.requests)
}

// reserve records a request if one fits, otherwise returns how long until the
// oldest one leaves the window. Caller holds mu.
func (w *Window) reserve() (time.Duration, bool) {
	now := w.now()
	w.evict(now)

	if len(w.requests) < w.max {
		w.requests = append(w.requests, now)
		return 0, true
	}

	delay := w.size - now.Sub(w.requests[0])
	if delay <= 0 {
		delay = time.Millisecond
	}
	return delay, false
}

// evict drops requests that fell out of the window
func (w *Window) evict(now time.Time) {
	cutoff := now.Add(-w.size)

	i := 0
	for i < len(w.requests) && !w.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		n := copy(w.requests, w.requests[i:])
		w.requests = w.requests[:n]
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

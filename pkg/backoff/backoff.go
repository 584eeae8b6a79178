package backoff

import (
	"context"
	"math/rand/v2"
	"time"
)

// Strategy yields the next wait duration
type Strategy interface {
	NextDelay() time.Duration
}

// Uniform draws delays uniformly from [Min, Max]
type Uniform struct {
	Min time.Duration
	Max time.Duration
	// Rand returns a value in [0, 1); nil uses math/rand/v2
	Rand func() float64
}

// NextDelay returns a delay in [Min, Max]
func (u Uniform) NextDelay() time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + time.Duration(float64(u.Max-u.Min)*random(u.Rand))
}

// Jittered spreads a nominal interval by ±Factor
type Jittered struct {
	Interval time.Duration
	// Factor of 0.2 yields delays in [0.8·Interval, 1.2·Interval]
	Factor float64
	Rand   func() float64
}

// NextDelay returns a delay in [Interval·(1-Factor), Interval·(1+Factor)]
func (j Jittered) NextDelay() time.Duration {
	lo := time.Duration(float64(j.Interval) * (1 - j.Factor))
	hi := time.Duration(float64(j.Interval) * (1 + j.Factor))
	return Uniform{Min: lo, Max: hi, Rand: j.Rand}.NextDelay()
}

func random(f func() float64) float64 {
	if f == nil {
		return rand.Float64()
	}
	return f()
}

// Wait blocks for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitInSteps waits for total in step-sized slices, returning early once
// keepGoing reports false or ctx is done. It returns false when cut short.
func WaitInSteps(ctx context.Context, total, step time.Duration, keepGoing func() bool) bool {
	if step <= 0 {
		step = time.Second
	}
	deadline := time.Now().Add(total)

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		if keepGoing != nil && !keepGoing() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining < step {
			return Wait(ctx, remaining) == nil && (keepGoing == nil || keepGoing())
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

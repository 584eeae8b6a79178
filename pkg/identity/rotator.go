// Package identity owns the browser signature presented on outbound requests.
package identity

import (
	"math/rand/v2"
	"sync"
)

// DefaultUserAgents is the built-in signature pool
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36 Edg/92.0.902.55",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
}

// Rotator holds a fixed pool of User-Agent strings and the active one
type Rotator struct {
	mu        sync.RWMutex
	agents    []string
	current   string
	rotations int
	pick      func(n int) int
}

// NewRotator creates a rotator over agents, or DefaultUserAgents when empty.
// The first agent is active until the first rotation.
func NewRotator(agents ...string) *Rotator {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	pool := make([]string, len(agents))
	copy(pool, agents)

	return &Rotator{
		agents:  pool,
		current: pool[0],
		pick:    rand.IntN,
	}
}

// Rotate installs a randomly chosen signature. Repeats are allowed.
func (r *Rotator) Rotate() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = r.agents[r.pick(len(r.agents))]
	r.rotations++
	return r.current
}

// Current returns the active signature
func (r *Rotator) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Rotations returns how many times Rotate has been called
func (r *Rotator) Rotations() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rotations
}

// Agents returns a copy of the pool
func (r *Rotator) Agents() []string {
	out := make([]string, len(r.agents))
	copy(out, r.agents)
	return out
}

// internal/app/run_guard.go
package app

import (
	"sync"
	"time"
)

// DefaultRunCooldown is the debounce window after a successful run.
const DefaultRunCooldown = 10 * time.Second

// RunGuard is a same-process debounce for the daily pipeline. It is not a
// distributed lock: cross-process safety comes from the store's own
// idempotency checks.
type RunGuard struct {
	mu          sync.Mutex
	running     bool
	lastSuccess time.Time
	cooldown    time.Duration
	now         func() time.Time
}

func NewRunGuard(cooldown time.Duration, now func() time.Time) *RunGuard {
	if cooldown <= 0 {
		cooldown = DefaultRunCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &RunGuard{cooldown: cooldown, now: now}
}

// TryAcquire admits a run unless one is in flight or the last successful run
// finished less than the cooldown ago.
func (g *RunGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return false
	}
	if !g.lastSuccess.IsZero() && g.now().Sub(g.lastSuccess) < g.cooldown {
		return false
	}
	g.running = true
	return true
}

// Release ends the admitted run. Only successful runs start the cooldown.
func (g *RunGuard) Release(success bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.running = false
	if success {
		g.lastSuccess = g.now()
	}
}

// Running reports whether a run is in flight.
func (g *RunGuard) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

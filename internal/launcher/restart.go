package launcher

import (
	"fmt"
	"sync"
	"time"
)

// RestartDecision is the outcome of consulting the restart policy after a
// process error.
type RestartDecision struct {
	Restart bool
	Delay   time.Duration
}

type attemptRecord struct {
	count int
	last  time.Time
}

// RestartPolicy bounds automatic restarts per (tool, index) key: at most
// maxRestarts attempts within a sliding window, each scheduled after a flat
// delay. Deliberately not exponential backoff; the flat delay/window/cap
// shape matches the launcher's long-observed behavior.
type RestartPolicy struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord

	maxRestarts int
	window      time.Duration
	delay       time.Duration

	now func() time.Time // test hook
}

// NewRestartPolicy builds a policy; non-positive arguments fall back to the
// package defaults (3 attempts / 300s window / 5s delay).
func NewRestartPolicy(maxRestarts int, window, delay time.Duration) *RestartPolicy {
	if maxRestarts <= 0 {
		maxRestarts = defaultMaxRestarts
	}
	if window <= 0 {
		window = defaultRestartWindow
	}
	if delay <= 0 {
		delay = defaultRestartDelay
	}
	return &RestartPolicy{
		attempts:    make(map[string]*attemptRecord),
		maxRestarts: maxRestarts,
		window:      window,
		delay:       delay,
		now:         time.Now,
	}
}

func restartKey(tool string, index int) string { return fmt.Sprintf("%s/%d", tool, index) }

// OnProcessError records one error for the keyed slot and decides whether to
// restart. The counter resets when the window has elapsed since the last
// attempt; past the cap the policy gives up until the window naturally resets
// on a later error or a manual start.
func (p *RestartPolicy) OnProcessError(tool string, index int) RestartDecision {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := restartKey(tool, index)
	rec := p.attempts[key]
	if rec == nil {
		rec = &attemptRecord{}
		p.attempts[key] = rec
	}
	now := p.now()
	if !rec.last.IsZero() && now.Sub(rec.last) > p.window {
		rec.count = 0
	}
	if rec.count >= p.maxRestarts {
		return RestartDecision{}
	}
	rec.count++
	rec.last = now
	return RestartDecision{Restart: true, Delay: p.delay}
}

// Attempts reports the current attempt count for the keyed slot.
func (p *RestartPolicy) Attempts(tool string, index int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec := p.attempts[restartKey(tool, index)]; rec != nil {
		return rec.count
	}
	return 0
}

// Reset clears the attempt record for the keyed slot. Called on manual start
// so a user-initiated run gets a fresh budget.
func (p *RestartPolicy) Reset(tool string, index int) {
	p.mu.Lock()
	delete(p.attempts, restartKey(tool, index))
	p.mu.Unlock()
}

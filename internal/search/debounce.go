// Package search provides input-side utilities for storefront search.
package search

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single call after a quiet
// period. Only the last function passed to Trigger runs; earlier pending
// calls are replaced. Safe for concurrent use.
type Debouncer struct {
	Delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func (d *Debouncer) delay() time.Duration {
	if d.Delay <= 0 {
		return 300 * time.Millisecond
	}
	return d.Delay
}

// Trigger schedules fn to run once the quiet period elapses, replacing any
// pending call.
func (d *Debouncer) Trigger(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay(), fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

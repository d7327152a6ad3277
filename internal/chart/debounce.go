package chart

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// debouncer coalesces bursts of triggers into one call of fn, delay after
// the last trigger.
type debouncer struct {
	mu    sync.Mutex
	clock clock.WithDelayedExecution
	delay time.Duration
	fn    func()
	timer clock.Timer
}

func newDebouncer(c clock.WithDelayedExecution, delay time.Duration, fn func()) *debouncer {
	return &debouncer{clock: c, delay: delay, fn: fn}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, d.fn)
}

func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

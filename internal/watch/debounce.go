package watch

import (
	"sync"
	"time"
)

// Debouncer collapses rapid triggers into a single action after a quiet
// period. Safe for concurrent use.
type Debouncer struct {
	mu     sync.Mutex
	timer  *time.Timer
	quiet  time.Duration
	action func()
	seq    uint64
	wg     sync.WaitGroup
}

// NewDebouncer returns a debouncer that invokes action once the quiet
// period has elapsed since the most recent Trigger.
func NewDebouncer(quiet time.Duration, action func()) *Debouncer {
	return &Debouncer{quiet: quiet, action: action}
}

// Trigger arms or re-arms the quiet-period timer. Repeated triggers
// coalesce: action fires once, after the last one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}

	d.seq++
	seq := d.seq

	d.wg.Add(1)
	d.timer = time.AfterFunc(d.quiet, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.seq != seq {
			// A later Trigger superseded this timer.
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.action()
	})
}

// Cancel drops any pending action without waiting for one already running.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		if d.timer.Stop() {
			d.wg.Done()
		}
		d.timer = nil
	}
}

// CancelAndWait drops any pending action and blocks until an in-flight
// action returns. Used during shutdown.
func (d *Debouncer) CancelAndWait() {
	d.Cancel()
	d.wg.Wait()
}

package render

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet window before a burst of edits is rendered.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs only the last of a burst of triggers, once the window has
// passed without a new one. A new trigger cancels the pending task.
type Debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	timer   *time.Timer
	stopped bool
}

// NewDebouncer returns a Debouncer with the given quiet window. Non-positive
// values use DefaultDebounce.
func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer{wait: wait}
}

// Trigger schedules fn, cancelling whatever was pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		current := d.timer == t && !d.stopped
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
	d.timer = t
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop cancels the pending task and ignores later triggers.
func (d *Debouncer) Stop() {
	d.Cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

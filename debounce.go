package viewstate

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer used by Debouncer.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer coalesces calls over an idle window: only the last function
// passed to Trigger runs, once no Trigger happened for the wait duration.
type Debouncer struct {
	wait      time.Duration
	afterFunc AfterFunc

	mu      sync.Mutex
	timer   Timer
	pending func()
	gen     uint64
	stopped bool
}

func NewDebouncer(wait time.Duration, afterFunc AfterFunc) *Debouncer {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Debouncer{
		wait:      wait,
		afterFunc: afterFunc,
	}
}

// Trigger replaces the pending function with f and restarts the idle
// window. It reports whether an earlier pending call was superseded.
func (d *Debouncer) Trigger(f func()) (coalesced bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	coalesced = d.pending != nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = f
	d.gen++
	gen := d.gen
	d.timer = d.afterFunc(d.wait, func() {
		d.fire(gen)
	})
	return coalesced
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		// superseded by a later Trigger or already flushed
		d.mu.Unlock()
		return
	}
	f := d.take()
	d.mu.Unlock()
	f()
}

func (d *Debouncer) take() func() {
	f := d.pending
	d.pending = nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return f
}

// Pending reports whether a call is waiting for the idle window to pass.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Flush runs the pending function right away, if any.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	f := d.take()
	d.mu.Unlock()
	f()
	return true
}

// Stop drops the pending function and ignores further Triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Cancel drops the pending function without running it and reports whether
// there was one. Unlike Stop, later Triggers still schedule.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return false
	}
	d.take()
	return true
}

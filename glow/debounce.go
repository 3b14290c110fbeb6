package glow

import "time"

// Debouncer is a periodic ticker driven by the caller's clock. It keeps
// the logical time the next tick is due and is decoupled from the render
// cadence.
type Debouncer struct {
	interval time.Duration
	next     time.Time
}

// NewDebouncer returns a Debouncer whose first tick is due one interval
// after start.
func NewDebouncer(interval time.Duration, start time.Time) *Debouncer {
	return &Debouncer{interval: interval, next: start.Add(interval)}
}

// Due reports whether now is strictly past the due time. When it fires,
// the next tick is scheduled one interval after now.
func (d *Debouncer) Due(now time.Time) bool {
	if !now.After(d.next) {
		return false
	}
	d.next = now.Add(d.interval)
	return true
}

// Next returns the time after which the debouncer fires again.
func (d *Debouncer) Next() time.Time {
	return d.next
}

// Package rtos provides the cross-goroutine signalling primitives used by the
// interrupt and worker paths: a coalescing Signal and a bounded Queue.
package rtos

import "time"

// Forever makes a Wait, Send or Receive block until it succeeds.
const Forever time.Duration = -1

// timerFor returns a channel that fires after d, or nil for Forever.
// A nil channel never fires in a select.
func timerFor(d time.Duration) (<-chan time.Time, func()) {
	if d < 0 {
		return nil, func() {}
	}
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}

package rtos

import (
	"context"
	"sync/atomic"
	"time"
)

// Signal is a single-slot, latest-value-wins wakeup between an interrupt
// handler and one waiting goroutine.
//
// Notify may be called from a context that must not block: it performs only
// atomic stores and a non-blocking channel send. Several notifies before a
// Wait collapse into one wakeup; consumers must treat a wakeup as "something
// happened", not as a count.
type Signal struct {
	value   atomic.Uint32
	pending atomic.Bool
	wake    chan struct{} // cap 1: coalesced wake token
}

func NewSignal() *Signal {
	return &Signal{wake: make(chan struct{}, 1)}
}

// Notify sets the pending value and returns immediately. It reports true when
// a wake token was posted into the empty slot. A goroutine blocked in Wait
// then becomes runnable, so the caller should yield at its next safe point;
// with no one waiting the yield is merely spurious.
func (s *Signal) Notify(v uint32) (woken bool) {
	s.value.Store(v)
	s.pending.Store(true)
	select {
	case s.wake <- struct{}{}:
		return true
	default:
		return false
	}
}

// Pending reports whether a notify is waiting to be consumed.
func (s *Signal) Pending() bool { return s.pending.Load() }

// Wait blocks until a notify arrives or timeout elapses. A zero timeout polls,
// Forever blocks without limit. On success all pending state is cleared.
func (s *Signal) Wait(timeout time.Duration) (uint32, bool) {
	if v, ok := s.take(); ok || timeout == 0 {
		return v, ok
	}
	expired, stop := timerFor(timeout)
	defer stop()
	for {
		select {
		case <-s.wake:
		case <-expired:
			return s.take()
		}
		if v, ok := s.take(); ok {
			return v, true
		}
	}
}

// WaitContext is Wait with cancellation instead of a timeout.
func (s *Signal) WaitContext(ctx context.Context) (uint32, bool) {
	for {
		if v, ok := s.take(); ok {
			return v, true
		}
		select {
		case <-s.wake:
		case <-ctx.Done():
			return 0, false
		}
	}
}

// take consumes the pending notify, draining any stale wake token.
// pending is always set before the token is posted, so a token left behind
// only causes one spurious loop in the waiter.
func (s *Signal) take() (uint32, bool) {
	if !s.pending.Swap(false) {
		return 0, false
	}
	select {
	case <-s.wake:
	default:
	}
	return s.value.Load(), true
}

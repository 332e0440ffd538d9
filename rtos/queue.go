package rtos

import (
	"context"
	"time"

	"eventnode-go/errcode"
)

// Queue is a fixed-capacity FIFO. Any number of goroutines may send; one is
// expected to receive. A full queue blocks the sender; items are never
// dropped.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a queue holding up to capacity items (minimum 1).
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

func (q *Queue[T]) Len() int { return len(q.ch) }
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// Send enqueues item, waiting up to timeout for room. Zero polls, Forever
// blocks. Returns errcode.Timeout when no room appeared in time.
func (q *Queue[T]) Send(item T, timeout time.Duration) error {
	if timeout == 0 {
		select {
		case q.ch <- item:
			return nil
		default:
			return errcode.Timeout
		}
	}
	expired, stop := timerFor(timeout)
	defer stop()
	select {
	case q.ch <- item:
		return nil
	case <-expired:
		return errcode.Timeout
	}
}

// Receive dequeues the oldest item, waiting up to timeout. Zero polls,
// Forever blocks. Returns errcode.Timeout when the queue stayed empty.
func (q *Queue[T]) Receive(timeout time.Duration) (T, error) {
	var zero T
	if timeout == 0 {
		select {
		case v := <-q.ch:
			return v, nil
		default:
			return zero, errcode.Timeout
		}
	}
	expired, stop := timerFor(timeout)
	defer stop()
	select {
	case v := <-q.ch:
		return v, nil
	case <-expired:
		return zero, errcode.Timeout
	}
}

// SendContext blocks until item is enqueued or ctx is done.
func (q *Queue[T]) SendContext(ctx context.Context, item T) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReceiveContext blocks until an item is available or ctx is done.
func (q *Queue[T]) ReceiveContext(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Package queue provides the bounded, never-blocking hand-off used between
// the tick loop and its writers.
package queue

import "sync/atomic"

// DropOldest is a bounded FIFO whose Push never blocks: when full, the
// oldest item is evicted to make room for the newest.
type DropOldest[T any] struct {
	ch      chan T
	dropped atomic.Uint64
}

func NewDropOldest[T any](size int) *DropOldest[T] {
	if size <= 0 {
		size = 1
	}
	return &DropOldest[T]{ch: make(chan T, size)}
}

// Push enqueues v and reports whether an item had to be dropped.
func (q *DropOldest[T]) Push(v T) bool {
	select {
	case q.ch <- v:
		return false
	default:
	}
	select {
	case <-q.ch:
	default:
	}
	q.dropped.Add(1)
	select {
	case q.ch <- v:
	default:
		// Lost a race with another producer; v itself is the casualty.
	}
	return true
}

// C is the receive side.
func (q *DropOldest[T]) C() <-chan T { return q.ch }

// TryPop returns the oldest item without blocking.
func (q *DropOldest[T]) TryPop() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

func (q *DropOldest[T]) Len() int        { return len(q.ch) }
func (q *DropOldest[T]) Cap() int        { return cap(q.ch) }
func (q *DropOldest[T]) Dropped() uint64 { return q.dropped.Load() }

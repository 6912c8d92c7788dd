// Package queue provides an unbounded FIFO queue with a bounded-wait pop.
//
// Producers never block. Consumers wait at most the given timeout for an
// item, and Close wakes every waiting consumer at once, so a stage loop can
// re-check its shutdown flag promptly.
package queue

import (
	"sync"
	"time"
)

// Queue is an unbounded, goroutine-safe FIFO queue
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	notify    chan struct{} // capacity 1, signalled on push
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates an empty queue
func New[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Push appends an item. It never blocks. Items pushed after Close are kept
// and can still be drained.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
}

// TryPop removes the oldest item without waiting
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	} else {
		q.signal()
	}
	return item, true
}

// PopWait removes the oldest item, waiting up to timeout for one to arrive.
// It returns false on timeout or once the queue is closed and empty.
func (q *Queue[T]) PopWait(timeout time.Duration) (T, bool) {
	if item, ok := q.TryPop(); ok {
		return item, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if item, ok := q.TryPop(); ok {
				return item, true
			}
		case <-q.closed:
			return q.TryPop()
		case <-timer.C:
			return q.TryPop()
		}
	}
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every queued item in FIFO order
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Close wakes all waiting consumers. Subsequent PopWait calls do not wait.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// Closed reports whether Close has been called
func (q *Queue[T]) Closed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

package relay

import (
	"sync"
	"time"
)

type pollState int

const (
	pollItem pollState = iota
	pollEmpty
	pollDrained
)

// handoff is an unbounded FIFO between one producer and one consumer. Put
// never blocks, so the reasoning side is never slowed down by a slow or
// vanished consumer.
type handoff[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
}

func newHandoff[T any]() *handoff[T] {
	return &handoff[T]{notify: make(chan struct{}, 1)}
}

// put appends item. It reports false once the queue is closed.
func (q *handoff[T]) put(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return true
}

// close marks the end of input. Items already queued are still delivered.
func (q *handoff[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
}

func (q *handoff[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// poll returns the oldest item, waiting at most wait for one to arrive.
func (q *handoff[T]) poll(wait time.Duration) (T, pollState) {
	if item, state, ok := q.take(); ok {
		return item, state
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-q.notify:
	case <-timer.C:
	}

	if item, state, ok := q.take(); ok {
		return item, state
	}

	var zero T
	return zero, pollEmpty
}

func (q *handoff[T]) take() (T, pollState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) > 0 {
		item := q.items[0]
		q.items[0] = zero
		q.items = q.items[1:]
		return item, pollItem, true
	}
	if q.closed {
		return zero, pollDrained, true
	}
	return zero, pollEmpty, false
}

// Package queue provides the unbounded FIFO used between the network agent
// and the display. Senders never block; receivers can poll or wait.
package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrEmpty is returned by TryRecv when the queue is open but has nothing pending.
	ErrEmpty = errors.New("queue: empty")
	// ErrClosed is returned by Send after Close, and by receives once a closed
	// queue has been drained.
	ErrClosed = errors.New("queue: closed")
)

// Queue is a lossless unbounded FIFO. It is safe for one producer and one
// consumer (or more) to use concurrently.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	ready  chan struct{} // signalled when items arrive or the queue closes
}

func New[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Send appends v. It never blocks.
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
	return nil
}

// TryRecv pops the oldest item without waiting. Items sent before Close are
// still delivered; ErrClosed is only returned once they are gone.
func (q *Queue[T]) TryRecv() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		if q.closed {
			return zero, ErrClosed
		}
		return zero, ErrEmpty
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, nil
}

// Recv waits for the next item, for the queue to close, or for ctx to end.
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, err := q.TryRecv()
		if !errors.Is(err, ErrEmpty) {
			return v, err
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len reports the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further sends. Calling it more than once is harmless.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

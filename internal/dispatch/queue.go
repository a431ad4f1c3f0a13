package dispatch

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmpty is returned by Pop when the timeout expires with nothing queued.
	ErrEmpty = errors.New("dispatch: queue empty")
	// ErrFull is returned by TryPush when the queue is at capacity.
	ErrFull = errors.New("dispatch: queue full")
)

// DefaultQueueSize matches the depth of the outbound bus.
const DefaultQueueSize = 16

// Queue is a bounded FIFO of outbound messages.
type Queue struct {
	ch chan Message
}

// NewQueue returns a queue holding up to size messages.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Message, size)}
}

// Push blocks until there is room or ctx is done.
func (q *Queue) Push(ctx context.Context, m Message) error {
	select {
	case q.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush enqueues without blocking.
func (q *Queue) TryPush(m Message) error {
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrFull
	}
}

// Pop waits for the next message. A timeout of zero or less waits until ctx
// is done.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Message, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case m := <-q.ch:
		return m, nil
	case <-expired:
		return Message{}, ErrEmpty
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len reports the number of queued messages.
func (q *Queue) Len() int {
	return len(q.ch)
}

package events

import (
	"context"
	"sync"

	"github.com/patrickwarner/admediator/internal/callbacks"
)

// Sink receives native callbacks. Backends post into it from whatever
// goroutine their SDK calls back on.
type Sink interface {
	Post(msg callbacks.Message)
}

// Handler consumes one redelivered callback.
type Handler func(msg callbacks.Message)

// Queue funnels callbacks from any goroutine to a single consumer. Messages
// are delivered in the order they were posted, never batched or reordered.
type Queue struct {
	mu      sync.Mutex
	pending []callbacks.Message
	notify  chan struct{}
	// draining serialises consumers so only one goroutine delivers at a time.
	draining sync.Mutex
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Post enqueues a message. It never blocks.
func (q *Queue) Post(msg callbacks.Message) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of undelivered messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain delivers every pending message to h on the calling goroutine and
// returns how many were delivered. Messages posted by h itself are delivered
// in the same call, after the ones already queued.
func (q *Queue) Drain(h Handler) int {
	q.draining.Lock()
	defer q.draining.Unlock()

	n := 0
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return n
		}
		msg := q.pending[0]
		q.pending[0] = callbacks.Message{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		h(msg)
		n++
	}
}

// Run drains the queue whenever messages arrive until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, h Handler) error {
	for {
		q.Drain(h)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notify:
		}
	}
}

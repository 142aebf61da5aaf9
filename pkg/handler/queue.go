package handler

import (
	"context"
	"sync"

	"github.com/openagentic/a2a-core/pkg/a2a"
)

// DefaultQueueCapacity is the buffer of a handler event queue. A full
// queue blocks the writer, which is the backpressure contract.
const DefaultQueueCapacity = 16

/*
EventQueue is the single-reader, multi-writer buffer between a handler
worker and the orchestrator draining it.  Writes block while the buffer
is full and fail once the queue is closed or the context is canceled.
Close is idempotent, leaves buffered events readable, and is safe to call
from one writer goroutine while another write is in flight.
*/
type EventQueue struct {
	mu       sync.Mutex
	buf      []a2a.Event
	capacity int
	closed   bool

	notEmpty  chan struct{}
	notFull   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func NewEventQueue(capacity int) *EventQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &EventQueue{
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Write enqueues an event, blocking while the buffer is full.
func (q *EventQueue) Write(ctx context.Context, ev a2a.Event) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return context.Canceled
		}
		if len(q.buf) < q.capacity {
			q.buf = append(q.buf, ev)
			q.mu.Unlock()
			wake(q.notEmpty)
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.notFull:
		case <-q.done:
			return context.Canceled
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Next dequeues the oldest event, blocking while the buffer is empty.
// It reports false once the queue is closed and drained, or when the
// context is canceled.
func (q *EventQueue) Next(ctx context.Context) (a2a.Event, bool) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			ev := q.buf[0]
			q.buf = q.buf[1:]
			q.mu.Unlock()
			wake(q.notFull)
			return ev, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-q.notEmpty:
		case <-q.done:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close ends the stream and unblocks pending writes. Buffered events
// remain readable.
func (q *EventQueue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

// wake posts a non-blocking signal; waiters re-check state after waking.
func wake(signal chan struct{}) {
	select {
	case signal <- struct{}{}:
	default:
	}
}

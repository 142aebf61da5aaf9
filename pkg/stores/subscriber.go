package stores

import (
	"context"
	"sync"

	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
)

/*
subscriberQueue is the unbounded per-subscriber buffer used by the
fan-out path.  Appenders push without ever blocking; the subscriber's
goroutine pops at its own pace.  Closing the queue signals that a
terminal event has been delivered and no more will follow.
*/
type subscriberQueue struct {
	mu     sync.Mutex
	buf    []a2a.EventEnvelope
	signal chan struct{}
	closed bool
}

func newSubscriberQueue() *subscriberQueue {
	return &subscriberQueue{
		signal: make(chan struct{}, 1),
	}
}

// push enqueues without blocking. Pushes after close are dropped.
func (q *subscriberQueue) push(env a2a.EventEnvelope) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf = append(q.buf, env)
	q.mu.Unlock()
	q.wake()
}

// close marks the writer side done. Buffered envelopes stay readable.
func (q *subscriberQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *subscriberQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop blocks until an envelope is available, the queue is closed and
// drained, or the context is canceled.
func (q *subscriberQueue) pop(ctx context.Context) (a2a.EventEnvelope, bool) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			env := q.buf[0]
			q.buf = q.buf[1:]
			q.mu.Unlock()
			return env, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return a2a.EventEnvelope{}, false
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			return a2a.EventEnvelope{}, false
		}
	}
}

/*
Subscribe implements catch-up-then-live tailing for one task partition.

The queue is registered with the partition before historical events are
read: anything appended after registration arrives on the live path, so
the catch-up/live hand-off cannot drop events.  Events that show up on
both sides are filtered by version.
*/
func (s *InMemoryTaskStore) Subscribe(ctx context.Context, taskID string, afterVersion int64) (<-chan a2a.EventEnvelope, *errors.RpcError) {
	l := s.log(taskID)
	queue := newSubscriberQueue()
	l.register(queue)

	out := make(chan a2a.EventEnvelope)

	go func() {
		defer close(out)
		defer l.deregister(queue)

		cursor := afterVersion

		// Catch-up: snapshot of what is already persisted.
		history, _ := s.Read(ctx, taskID, afterVersion+1)
		for _, env := range history {
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
			cursor = env.Version
			if a2a.Terminal(env.Event) {
				return
			}
		}

		// Live: consume the queue, dropping anything already seen.
		for {
			env, ok := queue.pop(ctx)
			if !ok {
				return
			}
			if env.Version <= cursor {
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
			cursor = env.Version
			if a2a.Terminal(env.Event) {
				return
			}
		}
	}()

	return out, nil
}

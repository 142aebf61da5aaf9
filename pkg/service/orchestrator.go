// Package service hosts the request orchestrator and the protocol
// front-end: JSON-RPC 2.0 dispatch, the REST surface, and SSE streaming,
// all served over a single fiber application.
package service

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
	"github.com/openagentic/a2a-core/pkg/handler"
	"github.com/openagentic/a2a-core/pkg/metrics"
	"github.com/openagentic/a2a-core/pkg/stores"
)

// Config tunes the orchestrator's persistence behaviour.
type Config struct {
	// AutoPersistEvents appends handler events to the event log as they
	// are drained. Off, events only flow to the caller.
	AutoPersistEvents bool
	// AutoAppendHistory records the inbound user message in the task
	// history when a request continues an existing task.
	AutoAppendHistory bool
	// QueueCapacity bounds the handler event queue.
	QueueCapacity int
}

// DefaultConfig returns the persistence defaults.
func DefaultConfig() Config {
	return Config{
		AutoPersistEvents: true,
		AutoAppendHistory: true,
		QueueCapacity:     handler.DefaultQueueCapacity,
	}
}

// StreamItem is one element of a streamed response. Exactly one of Event
// and Err is set; an Err item is always the last one.
type StreamItem struct {
	Event a2a.Event
	Err   *errors.RpcError
}

/*
Orchestrator drives the per-request lifecycle: it resolves the task
context, enforces the terminal-state guard, spawns the handler worker,
persists drained events, and shapes responses.  It is safe for
concurrent use; per-task write ordering is delegated to the store.
*/
type Orchestrator struct {
	store  stores.TaskStore
	agent  handler.AgentHandler
	config Config
}

func NewOrchestrator(store stores.TaskStore, agent handler.AgentHandler, config Config) *Orchestrator {
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = handler.DefaultQueueCapacity
	}

	return &Orchestrator{
		store:  store,
		agent:  agent,
		config: config,
	}
}

/*
SendMessage runs the handler to completion and returns a single result.
The first drained event of kind task or message fixes the payload kind;
a task payload is re-fetched after drainage so it reflects every event
of the request.
*/
func (o *Orchestrator) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (a2a.Event, *errors.RpcError) {
	if rpcErr := params.Validate(); rpcErr != nil {
		return nil, rpcErr
	}

	ac, rpcErr := o.resolveContext(ctx, &params.Message, false)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if rpcErr = o.appendRequestHistory(ctx, ac); rpcErr != nil {
		return nil, rpcErr
	}

	queue := handler.NewEventQueue(o.config.QueueCapacity)
	errc := o.spawnWorker(ctx, ac, queue)

	var (
		first a2a.Event
		count int
	)

	for {
		ev, ok := queue.Next(ctx)
		if !ok {
			break
		}

		count++

		if rpcErr = o.persistEvent(ctx, ac, ev); rpcErr != nil {
			// Unblock the worker; its result lands in the buffered errc.
			queue.Close()
			return nil, rpcErr
		}

		if first == nil {
			switch ev.EventKind() {
			case a2a.KindTask, a2a.KindMessage:
				first = ev
			}
		}
	}

	// Handler failures surface only after the queue is fully drained.
	if err := <-errc; err != nil {
		return nil, errors.FromError(err)
	}

	if count == 0 {
		return nil, errors.ErrInvalidAgentResponse
	}

	if first == nil || first.EventKind() == a2a.KindTask {
		task, rpcErr := o.snapshot(ctx, ac.TaskID, historyLength(params))

		if rpcErr != nil {
			// Status or artifact updates without a task to attach to
			// mean the handler never established a response payload.
			if rpcErr.Code == errors.ErrTaskNotFound.Code {
				return nil, errors.ErrInvalidAgentResponse
			}

			return nil, rpcErr
		}

		return task, nil
	}

	return first, nil
}

/*
SendStreamingMessage runs the handler and yields each event as it is
drained, persisting it first.  A handler failure is surfaced as a final
error item after the stream of events.
*/
func (o *Orchestrator) SendStreamingMessage(ctx context.Context, params *a2a.MessageSendParams) (<-chan StreamItem, *errors.RpcError) {
	if rpcErr := params.Validate(); rpcErr != nil {
		return nil, rpcErr
	}

	ac, rpcErr := o.resolveContext(ctx, &params.Message, true)

	if rpcErr != nil {
		return nil, rpcErr
	}

	out := make(chan StreamItem)

	go func() {
		defer close(out)

		metrics.RecordStreamOpen()
		defer metrics.RecordStreamClose()

		if rpcErr := o.appendRequestHistory(ctx, ac); rpcErr != nil {
			emit(ctx, out, StreamItem{Err: rpcErr})
			return
		}

		queue := handler.NewEventQueue(o.config.QueueCapacity)
		errc := o.spawnWorker(ctx, ac, queue)

		for {
			ev, ok := queue.Next(ctx)
			if !ok {
				break
			}

			if rpcErr := o.persistEvent(ctx, ac, ev); rpcErr != nil {
				queue.Close()
				emit(ctx, out, StreamItem{Err: rpcErr})
				return
			}

			metrics.RecordStreamEvent(ev.EventKind())

			if !emit(ctx, out, StreamItem{Event: ev}) {
				queue.Close()
				return
			}
		}

		if err := <-errc; err != nil {
			emit(ctx, out, StreamItem{Err: errors.FromError(err)})
		}
	}()

	return out, nil
}

// GetTask returns the task projection shaped by the history length.
func (o *Orchestrator) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, *errors.RpcError) {
	if rpcErr := params.Validate(); rpcErr != nil {
		return nil, rpcErr
	}

	return o.snapshot(ctx, params.ID, params.HistoryLength)
}

/*
CancelTask invokes the handler's cancel path for a running task and
returns the post-drain projection.  Canceling a task already in a result
state fails with TaskNotCancelable.
*/
func (o *Orchestrator) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, *errors.RpcError) {
	task, rpcErr := o.store.GetTask(ctx, params.ID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task == nil {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", params.ID)
	}

	if task.Status.State.Terminal() {
		return nil, errors.ErrTaskNotCancelable.WithMessagef(
			"task %s is already %s", task.ID, task.Status.State,
		)
	}

	ac := &handler.Context{
		Task:      task,
		TaskID:    task.ID,
		ContextID: task.ContextID,
	}

	if last := task.LastMessage(); last != nil {
		ac.Message = *last
	} else {
		ac.Message = a2a.Message{Kind: a2a.KindMessage, Role: a2a.RoleUser}
	}

	queue := handler.NewEventQueue(o.config.QueueCapacity)

	errc := make(chan error, 1)
	go func() {
		defer queue.Close()
		errc <- o.agent.Cancel(ctx, ac, queue)
	}()

	for {
		ev, ok := queue.Next(ctx)
		if !ok {
			break
		}

		if rpcErr = o.persistEvent(ctx, ac, ev); rpcErr != nil {
			queue.Close()
			return nil, rpcErr
		}
	}

	if err := <-errc; err != nil {
		return nil, errors.FromError(err)
	}

	return o.snapshot(ctx, params.ID, nil)
}

/*
SubscribeToTask attaches to a running task's event stream with
catch-up-then-live semantics.  The current task projection is always the
first item; subscribing to a task in a result state is rejected.
*/
func (o *Orchestrator) SubscribeToTask(ctx context.Context, params *a2a.TaskQueryParams) (<-chan StreamItem, *errors.RpcError) {
	if rpcErr := params.Validate(); rpcErr != nil {
		return nil, rpcErr
	}

	// Snapshot and subscription start point must come from one locked
	// read, or an event appended between them reaches neither side.
	task, version, rpcErr := o.store.GetTaskWithVersion(ctx, params.ID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task == nil {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", params.ID)
	}

	if task.Status.State.Terminal() {
		return nil, errors.ErrUnsupportedOperation.WithMessagef(
			"task %s is already %s", task.ID, task.Status.State,
		)
	}

	sub, rpcErr := o.store.Subscribe(ctx, params.ID, version)

	if rpcErr != nil {
		return nil, rpcErr
	}

	task.TrimHistory(params.HistoryLength)

	out := make(chan StreamItem)

	go func() {
		defer close(out)

		metrics.RecordStreamOpen()
		defer metrics.RecordStreamClose()

		if !emit(ctx, out, StreamItem{Event: task}) {
			return
		}

		for env := range sub {
			metrics.RecordStreamEvent(env.Event.EventKind())

			if !emit(ctx, out, StreamItem{Event: env.Event}) {
				return
			}
		}
	}()

	return out, nil
}

// ListTasks pages through stored task projections.
func (o *Orchestrator) ListTasks(ctx context.Context, params *a2a.ListTasksParams) (*a2a.ListTasksResult, *errors.RpcError) {
	return o.store.ListTasks(ctx, *params)
}

/*
resolveContext validates the inbound message and binds it to a task.  A
message carrying a taskId must reference a stored, non-terminal task; the
contextId is inherited from the task when the client omitted one.  A
fresh request mints both identifiers.
*/
func (o *Orchestrator) resolveContext(ctx context.Context, msg *a2a.Message, streaming bool) (*handler.Context, *errors.RpcError) {
	if rpcErr := msg.Validate(); rpcErr != nil {
		return nil, rpcErr
	}

	ac := &handler.Context{
		Streaming: streaming,
		Metadata:  msg.Metadata,
	}

	if msg.TaskID != "" {
		task, rpcErr := o.store.GetTask(ctx, msg.TaskID)

		if rpcErr != nil {
			return nil, rpcErr
		}

		if task == nil {
			return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", msg.TaskID)
		}

		if task.Status.State.Terminal() {
			return nil, errors.ErrUnsupportedOperation.WithMessagef(
				"task %s is already %s", task.ID, task.Status.State,
			)
		}

		ac.Task = task
		ac.TaskID = task.ID
		ac.ContextID = msg.ContextID

		if ac.ContextID == "" {
			ac.ContextID = task.ContextID
		}
	} else {
		ac.TaskID = uuid.NewString()
		ac.ContextID = msg.ContextID

		if ac.ContextID == "" {
			ac.ContextID = uuid.NewString()
		}
	}

	bound := msg.Clone()
	bound.TaskID = ac.TaskID
	bound.ContextID = ac.ContextID
	ac.Message = *bound

	return ac, nil
}

// appendRequestHistory records the inbound user message before draining,
// so history order is task history, user message, handler events.
func (o *Orchestrator) appendRequestHistory(ctx context.Context, ac *handler.Context) *errors.RpcError {
	if !o.config.AutoAppendHistory || !ac.IsContinuation() {
		return nil
	}

	_, rpcErr := o.store.Append(ctx, ac.TaskID, ac.Message.Clone(), nil)

	return rpcErr
}

/*
persistEvent appends a drained handler event to the task log.  Message
events are only recorded once the task itself exists in the store, so a
handler that answers with a bare message leaves nothing behind.
*/
func (o *Orchestrator) persistEvent(ctx context.Context, ac *handler.Context, ev a2a.Event) *errors.RpcError {
	if !o.config.AutoPersistEvents {
		return nil
	}

	if ev.EventKind() == a2a.KindMessage && !o.store.Exists(ctx, ac.TaskID) {
		return nil
	}

	stampEvent(ac, ev)

	if _, rpcErr := o.store.Append(ctx, ac.TaskID, ev, nil); rpcErr != nil {
		return rpcErr
	}

	switch typed := ev.(type) {
	case *a2a.Task:
		if !ac.IsContinuation() {
			metrics.RecordTaskCreated()
		}
	case *a2a.TaskStatusUpdateEvent:
		if typed.Status.State.Terminal() {
			metrics.RecordTaskTerminated(string(typed.Status.State))
		}
	}

	return nil
}

// snapshot re-fetches the projection and shapes its history.
func (o *Orchestrator) snapshot(ctx context.Context, taskID string, history *int) (*a2a.Task, *errors.RpcError) {
	task, rpcErr := o.store.GetTask(ctx, taskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task == nil {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", taskID)
	}

	task.TrimHistory(history)

	return task, nil
}

// spawnWorker runs the handler in its own goroutine. The queue is always
// closed when the handler returns, whatever the outcome.
func (o *Orchestrator) spawnWorker(ctx context.Context, ac *handler.Context, queue *handler.EventQueue) <-chan error {
	errc := make(chan error, 1)

	go func() {
		defer queue.Close()

		err := o.agent.Execute(ctx, ac, queue)

		if err != nil {
			log.Error("handler execution failed", "taskId", ac.TaskID, "error", err)
		}

		errc <- err
	}()

	return errc
}

// stampEvent fills in the task binding on events the handler left blank.
func stampEvent(ac *handler.Context, ev a2a.Event) {
	switch typed := ev.(type) {
	case *a2a.Message:
		if typed.TaskID == "" {
			typed.TaskID = ac.TaskID
		}
		if typed.ContextID == "" {
			typed.ContextID = ac.ContextID
		}
	case *a2a.TaskStatusUpdateEvent:
		if typed.TaskID == "" {
			typed.TaskID = ac.TaskID
		}
		if typed.ContextID == "" {
			typed.ContextID = ac.ContextID
		}
	case *a2a.TaskArtifactUpdateEvent:
		if typed.TaskID == "" {
			typed.TaskID = ac.TaskID
		}
		if typed.ContextID == "" {
			typed.ContextID = ac.ContextID
		}
	}
}

// emit pushes a stream item unless the caller has gone away.
func emit(ctx context.Context, out chan<- StreamItem, item StreamItem) bool {
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

func historyLength(params *a2a.MessageSendParams) *int {
	if params.Config == nil {
		return nil
	}

	return params.Config.HistoryLength
}

// Package handler defines the contract between the runtime and the
// user-supplied agent logic: the execution context, the bounded event
// queue the agent writes to, and the TaskUpdater convenience façade.
package handler

import (
	"context"

	"github.com/openagentic/a2a-core/pkg/a2a"
)

/*
Context is the per-request value handed to agent logic: the inbound user
message, the stored task when the request continues one, the resolved
identifiers, and whether the caller is streaming.
*/
type Context struct {
	Message   a2a.Message
	Task      *a2a.Task
	TaskID    string
	ContextID string
	Streaming bool
	Metadata  map[string]any
}

// IsContinuation reports whether the request continues an existing task.
func (c *Context) IsContinuation() bool { return c.Task != nil }

/*
AgentHandler is the capability set expected from agent logic.  Execute
performs the work, writing any number of stream events to the queue.  The
runtime detects completion by the handler returning; the queue is always
closed afterwards, whether the handler succeeded, failed, or observed a
cancellation.

Cancel is invoked for tasks/cancel.  Most implementations embed
DefaultCanceler, whose Cancel emits a canceled status update and closes
the queue.
*/
type AgentHandler interface {
	Execute(ctx context.Context, ac *Context, queue *EventQueue) error
	Cancel(ctx context.Context, ac *Context, queue *EventQueue) error
}

// DefaultCanceler provides the default cancel contract.
type DefaultCanceler struct{}

func (DefaultCanceler) Cancel(ctx context.Context, ac *Context, queue *EventQueue) error {
	updater := NewTaskUpdater(queue, ac.TaskID, ac.ContextID)
	return updater.Cancel(ctx, nil)
}

/*
EchoHandler is the reference handler: it answers every message with a
single agent message echoing the first text part.  It keeps the
out-of-the-box server experience pleasant and anchors the end-to-end
tests.
*/
type EchoHandler struct {
	DefaultCanceler
}

func (EchoHandler) Execute(ctx context.Context, ac *Context, queue *EventQueue) error {
	reply := a2a.NewTextMessage(a2a.RoleAgent, "Echo: "+ac.Message.Text())
	return queue.Write(ctx, reply)
}

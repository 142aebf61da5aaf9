package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/openagentic/a2a-core/pkg/a2a"
)

/*
TaskUpdater is the convenience façade handlers use to emit lifecycle
events without building them by hand.  Every operation stamps a UTC
timestamp; terminal operations additionally close the queue, after which
further writes fail.
*/
type TaskUpdater struct {
	queue     *EventQueue
	taskID    string
	contextID string
}

func NewTaskUpdater(queue *EventQueue, taskID, contextID string) *TaskUpdater {
	return &TaskUpdater{
		queue:     queue,
		taskID:    taskID,
		contextID: contextID,
	}
}

// TaskID returns the task this updater emits for.
func (u *TaskUpdater) TaskID() string { return u.taskID }

// ContextID returns the context this updater emits for.
func (u *TaskUpdater) ContextID() string { return u.contextID }

// Submit seeds the task partition with a Task event in the submitted
// state.
func (u *TaskUpdater) Submit(ctx context.Context) error {
	task := a2a.NewTask(u.taskID, u.contextID)
	return u.queue.Write(ctx, task)
}

// StartWork transitions the task to working.
func (u *TaskUpdater) StartWork(ctx context.Context) error {
	return u.status(ctx, a2a.TaskStateWorking, nil, false)
}

// AddArtifactOptions tunes an artifact update.
type AddArtifactOptions struct {
	ArtifactID  string
	Name        string
	Description string
	Append      bool
	LastChunk   bool
}

// AddArtifact emits an artifact update and returns the artifact id, which
// is minted when the options leave it empty.
func (u *TaskUpdater) AddArtifact(ctx context.Context, parts []a2a.Part, opts AddArtifactOptions) (string, error) {
	id := opts.ArtifactID
	if id == "" {
		id = uuid.NewString()
	}
	ev := a2a.NewArtifactUpdate(u.taskID, u.contextID, a2a.Artifact{
		ArtifactID:  id,
		Name:        opts.Name,
		Description: opts.Description,
		Parts:       parts,
	})
	ev.Append = opts.Append
	ev.LastChunk = opts.LastChunk
	if err := u.queue.Write(ctx, ev); err != nil {
		return "", err
	}
	return id, nil
}

// Complete terminates the task successfully.
func (u *TaskUpdater) Complete(ctx context.Context, msg *a2a.Message) error {
	return u.terminal(ctx, a2a.TaskStateCompleted, msg)
}

// Fail terminates the task with a failure.
func (u *TaskUpdater) Fail(ctx context.Context, msg *a2a.Message) error {
	return u.terminal(ctx, a2a.TaskStateFailed, msg)
}

// Cancel terminates the task as canceled.
func (u *TaskUpdater) Cancel(ctx context.Context, msg *a2a.Message) error {
	return u.terminal(ctx, a2a.TaskStateCanceled, msg)
}

// Reject terminates the task as rejected.
func (u *TaskUpdater) Reject(ctx context.Context, msg *a2a.Message) error {
	return u.terminal(ctx, a2a.TaskStateRejected, msg)
}

// RequireInput pauses the task until the client sends more input.
func (u *TaskUpdater) RequireInput(ctx context.Context, msg *a2a.Message) error {
	return u.status(ctx, a2a.TaskStateInputRequired, msg, false)
}

// RequireAuth pauses the task until the client authenticates.
func (u *TaskUpdater) RequireAuth(ctx context.Context, msg *a2a.Message) error {
	return u.status(ctx, a2a.TaskStateAuthRequired, msg, false)
}

func (u *TaskUpdater) status(ctx context.Context, state a2a.TaskState, msg *a2a.Message, final bool) error {
	ev := a2a.NewStatusUpdate(u.taskID, u.contextID, a2a.NewTaskStatus(state, msg), final)
	return u.queue.Write(ctx, ev)
}

func (u *TaskUpdater) terminal(ctx context.Context, state a2a.TaskState, msg *a2a.Message) error {
	if err := u.status(ctx, state, msg, true); err != nil {
		return err
	}
	u.queue.Close()
	return nil
}

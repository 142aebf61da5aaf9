package a2a

import (
	"encoding/json"

	"github.com/openagentic/a2a-core/pkg/errors"
)

// Wire discriminator values for the stream event union.
const (
	KindTask           = "task"
	KindMessage        = "message"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

/*
Event is the tagged union of everything that can travel down a task's
stream: the task snapshot itself, a message, a status transition or an
artifact chunk.  Deserialization dispatches on the "kind" field; there is
no reflection involved.
*/
type Event interface {
	EventKind() string
}

/*
TaskStatusUpdateEvent is emitted when the agent wishes to inform the
client of a status transition.  Final marks the last update of a stream.
*/
type TaskStatusUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewStatusUpdate(taskID, contextID string, status TaskStatus, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		Kind:      KindStatusUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Status:    status,
		Final:     final,
	}
}

// EventKind implements Event.
func (ev *TaskStatusUpdateEvent) EventKind() string { return KindStatusUpdate }

// Clone produces an owned deep copy of the event.
func (ev *TaskStatusUpdateEvent) Clone() *TaskStatusUpdateEvent {
	out := *ev
	out.Status = ev.Status.Clone()
	out.Metadata = cloneMap(ev.Metadata)
	return &out
}

/*
TaskArtifactUpdateEvent is emitted when a new or updated artifact chunk is
available for a task.  Append selects delta semantics, LastChunk signals
that the artifact is complete.
*/
type TaskArtifactUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  Artifact       `json:"artifact"`
	Append    bool           `json:"append,omitempty"`
	LastChunk bool           `json:"lastChunk,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewArtifactUpdate(taskID, contextID string, artifact Artifact) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		Kind:      KindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
	}
}

// EventKind implements Event.
func (ev *TaskArtifactUpdateEvent) EventKind() string { return KindArtifactUpdate }

// Clone produces an owned deep copy of the event.
func (ev *TaskArtifactUpdateEvent) Clone() *TaskArtifactUpdateEvent {
	out := *ev
	out.Artifact = ev.Artifact.Clone()
	out.Metadata = cloneMap(ev.Metadata)
	return &out
}

// Terminal reports whether the event carries a terminal state transition.
func Terminal(ev Event) bool {
	switch e := ev.(type) {
	case *Task:
		return e.Status.State.Terminal()
	case *TaskStatusUpdateEvent:
		return e.Status.State.Terminal()
	default:
		return false
	}
}

// CloneEvent deep-copies any member of the stream event union.
func CloneEvent(ev Event) Event {
	switch e := ev.(type) {
	case *Task:
		return e.Clone()
	case *Message:
		return e.Clone()
	case *TaskStatusUpdateEvent:
		return e.Clone()
	case *TaskArtifactUpdateEvent:
		return e.Clone()
	default:
		return ev
	}
}

/*
UnmarshalEvent decodes a stream event by dispatching on its "kind" field.
A missing or unknown kind is a structural violation.
*/
func UnmarshalEvent(data []byte) (Event, *errors.RpcError) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.ErrInvalidRequest.WithMessagef("malformed event: %v", err)
	}

	var (
		ev  Event
		err error
	)

	switch probe.Kind {
	case KindTask:
		var task Task
		err = json.Unmarshal(data, &task)
		ev = &task
	case KindMessage:
		var msg Message
		err = json.Unmarshal(data, &msg)
		ev = &msg
	case KindStatusUpdate:
		var su TaskStatusUpdateEvent
		err = json.Unmarshal(data, &su)
		ev = &su
	case KindArtifactUpdate:
		var au TaskArtifactUpdateEvent
		err = json.Unmarshal(data, &au)
		ev = &au
	case "":
		return nil, errors.ErrInvalidRequest.WithMessagef("event is missing its kind")
	default:
		return nil, errors.ErrInvalidRequest.WithMessagef("unknown event kind %q", probe.Kind)
	}

	if err != nil {
		return nil, errors.ErrInvalidRequest.WithMessagef("malformed %s event: %v", probe.Kind, err)
	}
	if rpcErr := validateEventParts(ev); rpcErr != nil {
		return nil, rpcErr
	}
	return ev, nil
}

// validateEventParts enforces part structure (notably bytes-xor-uri) on
// every part reachable from the event.
func validateEventParts(ev Event) *errors.RpcError {
	check := func(parts []Part) *errors.RpcError {
		for i := range parts {
			if err := parts[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	}

	switch e := ev.(type) {
	case *Message:
		return check(e.Parts)
	case *Task:
		for i := range e.History {
			if err := check(e.History[i].Parts); err != nil {
				return err
			}
		}
		for i := range e.Artifacts {
			if err := check(e.Artifacts[i].Parts); err != nil {
				return err
			}
		}
	case *TaskArtifactUpdateEvent:
		return check(e.Artifact.Parts)
	}
	return nil
}

/*
EventEnvelope pairs a stream event with its 0-based, contiguous version
within a task partition.
*/
type EventEnvelope struct {
	Version int64 `json:"version"`
	Event   Event `json:"event"`
}

// UnmarshalJSON decodes the envelope, dispatching the inner event on kind.
func (env *EventEnvelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version int64           `json:"version"`
		Event   json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev, rpcErr := UnmarshalEvent(raw.Event)
	if rpcErr != nil {
		return rpcErr
	}
	env.Version = raw.Version
	env.Event = ev
	return nil
}

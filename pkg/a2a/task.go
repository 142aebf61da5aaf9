package a2a

import "github.com/google/uuid"

/*
Task is the projected aggregate for a single unit of agent work: current
status, history of exchanged messages and the artifacts produced so far.
It is the result of folding the task's event log, and it doubles as the
"task" stream event that seeds a partition.
*/
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history,omitempty"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewTask(id, contextID string) *Task {
	if id == "" {
		id = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}
	return &Task{
		Kind:      KindTask,
		ID:        id,
		ContextID: contextID,
		Status:    NewTaskStatus(TaskStateSubmitted, nil),
	}
}

// EventKind implements Event.
func (task *Task) EventKind() string { return KindTask }

// Clone produces an owned deep copy of the task with no shared mutable
// substructure. Store projections hand out clones so callers may mutate
// freely.
func (task *Task) Clone() *Task {
	if task == nil {
		return nil
	}
	out := *task
	out.Status = task.Status.Clone()
	out.History = cloneMessages(task.History)
	out.Artifacts = cloneArtifacts(task.Artifacts)
	out.Metadata = cloneMap(task.Metadata)
	return &out
}

// LastMessage returns the most recent history entry, or nil.
func (task *Task) LastMessage() *Message {
	if len(task.History) == 0 {
		return nil
	}
	return &task.History[len(task.History)-1]
}

// TrimHistory applies the historyLength contract: nil leaves the history
// untouched, 0 drops it, n keeps the last n messages.
func (task *Task) TrimHistory(historyLength *int) {
	if historyLength == nil {
		return
	}
	n := *historyLength
	if n <= 0 {
		task.History = nil
		return
	}
	if len(task.History) > n {
		task.History = task.History[len(task.History)-n:]
	}
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}

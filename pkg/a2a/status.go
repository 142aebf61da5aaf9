package a2a

import "time"

/*
TaskState enumerates the mutually‑exclusive states a task may be in.
States serialize in SCREAMING_SNAKE form on the wire.
*/
type TaskState string

const (
	TaskStateSubmitted     TaskState = "TASK_STATE_SUBMITTED"
	TaskStateWorking       TaskState = "TASK_STATE_WORKING"
	TaskStateInputRequired TaskState = "TASK_STATE_INPUT_REQUIRED"
	TaskStateAuthRequired  TaskState = "TASK_STATE_AUTH_REQUIRED"
	TaskStateCompleted     TaskState = "TASK_STATE_COMPLETED"
	TaskStateFailed        TaskState = "TASK_STATE_FAILED"
	TaskStateCanceled      TaskState = "TASK_STATE_CANCELED"
	TaskStateRejected      TaskState = "TASK_STATE_REJECTED"
)

// Terminal reports whether the state is one of the four result states.
// Input-required and auth-required are pauses, not terminals: the task
// still accepts follow-up messages.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known task state.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateAuthRequired, TaskStateCompleted, TaskStateFailed,
		TaskStateCanceled, TaskStateRejected:
		return true
	default:
		return false
	}
}

type TaskStatus struct {
	State     TaskState  `json:"state"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Message   *Message   `json:"message,omitempty"`
}

func NewTaskStatus(state TaskState, message *Message) TaskStatus {
	now := time.Now().UTC()
	return TaskStatus{
		State:     state,
		Timestamp: &now,
		Message:   message,
	}
}

// Clone produces an owned deep copy of the status.
func (ts TaskStatus) Clone() TaskStatus {
	out := ts
	if ts.Timestamp != nil {
		t := *ts.Timestamp
		out.Timestamp = &t
	}
	out.Message = ts.Message.Clone()
	return out
}

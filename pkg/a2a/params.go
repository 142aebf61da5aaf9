package a2a

import (
	"time"

	"github.com/openagentic/a2a-core/pkg/errors"
)

// MessageSendParams carries the payload of message/send and message/stream.
type MessageSendParams struct {
	Message  Message                   `json:"message"`
	Metadata map[string]any            `json:"metadata,omitempty"`
	Config   *MessageSendConfiguration `json:"configuration,omitempty"`
}

// MessageSendConfiguration holds optional per-request tuning knobs.
type MessageSendConfiguration struct {
	HistoryLength *int `json:"historyLength,omitempty"`
	Blocking      bool `json:"blocking,omitempty"`
}

// Validate applies the semantic parameter checks shared by both transports.
func (p *MessageSendParams) Validate() *errors.RpcError {
	if err := p.Message.Validate(); err != nil {
		return err
	}
	if p.Config != nil && p.Config.HistoryLength != nil && *p.Config.HistoryLength < 0 {
		return errors.ErrInvalidParams.WithMessagef("historyLength must not be negative")
	}
	return nil
}

// TaskIDParams is the base parameter shape for task id operations.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskQueryParams parameterizes tasks/get.
type TaskQueryParams struct {
	TaskIDParams
	HistoryLength *int `json:"historyLength,omitempty"`
}

// Validate applies the semantic parameter checks for task queries.
func (p *TaskQueryParams) Validate() *errors.RpcError {
	if p.ID == "" {
		return errors.ErrInvalidParams.WithMessagef("task id must not be empty")
	}
	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return errors.ErrInvalidParams.WithMessagef("historyLength must not be negative")
	}
	return nil
}

// ListTasksParams filters and pages task listings.
type ListTasksParams struct {
	ContextID            string     `json:"contextId,omitempty"`
	State                TaskState  `json:"state,omitempty"`
	StatusTimestampAfter *time.Time `json:"statusTimestampAfter,omitempty"`
	PageSize             int        `json:"pageSize,omitempty"`
	PageToken            string     `json:"pageToken,omitempty"`
	HistoryLength        *int       `json:"historyLength,omitempty"`
	IncludeArtifacts     bool       `json:"includeArtifacts,omitempty"`
}

// Validate applies the semantic parameter checks for listings. The page
// token itself is validated by the store, which owns its encoding.
func (p *ListTasksParams) Validate() *errors.RpcError {
	if p.State != "" && !p.State.Valid() {
		return errors.ErrInvalidParams.WithMessagef("unknown task state filter %q", p.State)
	}
	if p.PageSize < 0 {
		return errors.ErrInvalidParams.WithMessagef("pageSize must not be negative")
	}
	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return errors.ErrInvalidParams.WithMessagef("historyLength must not be negative")
	}
	return nil
}

// ListTasksResult is one page of task projections.
type ListTasksResult struct {
	Tasks         []*Task `json:"tasks"`
	TotalSize     int     `json:"totalSize"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	PageSize      int     `json:"pageSize"`
}

// PushNotificationConfig describes where a client wants task updates
// delivered out-of-band. Delivery itself is out of scope; the runtime only
// stores configurations when the capability is enabled.
type PushNotificationConfig struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

// TaskPushNotificationConfig scopes a push config to one task.
type TaskPushNotificationConfig struct {
	TaskID string                 `json:"taskId"`
	Config PushNotificationConfig `json:"pushNotificationConfig"`
}

package a2a

import (
	"strings"

	"github.com/google/uuid"
	"github.com/openagentic/a2a-core/pkg/errors"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUnspecified Role = "ROLE_UNSPECIFIED"
	RoleUser        Role = "ROLE_USER"
	RoleAgent       Role = "ROLE_AGENT"
)

/*
Message represents all non‑artifact communication between client & agent.
Messages are immutable once persisted.
*/
type Message struct {
	Kind             string         `json:"kind"`
	MessageID        string         `json:"messageId"`
	Role             Role           `json:"role"`
	Parts            []Part         `json:"parts"`
	TaskID           string         `json:"taskId,omitempty"`
	ContextID        string         `json:"contextId,omitempty"`
	ReferenceTaskIDs []string       `json:"referenceTaskIds,omitempty"`
	Extensions       []string       `json:"extensions,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func NewTextMessage(role Role, text string) *Message {
	return &Message{
		Kind:      KindMessage,
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     []Part{NewTextPart(text)},
	}
}

func NewMessage(role Role, parts ...Part) *Message {
	return &Message{
		Kind:      KindMessage,
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     parts,
	}
}

// EventKind implements Event.
func (msg *Message) EventKind() string { return KindMessage }

// Validate checks the message for use as request input. An empty part list
// is a semantic parameter violation; malformed file content is a structural
// one, so the two map to different errors of the taxonomy.
func (msg *Message) Validate() *errors.RpcError {
	if len(msg.Parts) == 0 {
		return errors.ErrInvalidParams.WithMessagef("message parts must not be empty")
	}
	for i := range msg.Parts {
		if err := msg.Parts[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone produces an owned deep copy of the message.
func (msg *Message) Clone() *Message {
	if msg == nil {
		return nil
	}
	out := *msg
	out.Parts = cloneParts(msg.Parts)
	out.ReferenceTaskIDs = cloneStrings(msg.ReferenceTaskIDs)
	out.Extensions = cloneStrings(msg.Extensions)
	out.Metadata = cloneMap(msg.Metadata)
	return &out
}

// Text concatenates the text parts, which is what most log lines and demos
// care about.
func (msg *Message) Text() string {
	var sb strings.Builder
	for _, part := range msg.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

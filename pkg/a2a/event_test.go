package a2a

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalEvent_Message(t *testing.T) {
	msg := NewTextMessage(RoleUser, "hello")
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	ev, rpcErr := UnmarshalEvent(data)
	require.Nil(t, rpcErr)

	decoded, ok := ev.(*Message)
	require.True(t, ok)
	assert.Equal(t, msg, decoded)
}

func TestUnmarshalEvent_Task(t *testing.T) {
	task := NewTask("t1", "c1")
	task.History = append(task.History, *NewTextMessage(RoleUser, "hi"))
	data, err := json.Marshal(task)
	require.NoError(t, err)

	ev, rpcErr := UnmarshalEvent(data)
	require.Nil(t, rpcErr)

	decoded, ok := ev.(*Task)
	require.True(t, ok)
	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, task.ContextID, decoded.ContextID)
	assert.Equal(t, TaskStateSubmitted, decoded.Status.State)
	assert.Len(t, decoded.History, 1)
}

func TestUnmarshalEvent_StatusAndArtifactRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	su := NewStatusUpdate("t1", "c1", TaskStatus{State: TaskStateWorking, Timestamp: &now}, false)
	au := NewArtifactUpdate("t1", "c1", Artifact{ArtifactID: "a1", Parts: []Part{NewTextPart("chunk")}})
	au.Append = true
	au.LastChunk = true

	for _, original := range []Event{su, au} {
		data, err := json.Marshal(original)
		require.NoError(t, err)

		decoded, rpcErr := UnmarshalEvent(data)
		require.Nil(t, rpcErr)
		assert.Equal(t, original, decoded)
	}
}

func TestUnmarshalEvent_MissingKind(t *testing.T) {
	_, rpcErr := UnmarshalEvent([]byte(`{"id":"t1"}`))
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)
}

func TestUnmarshalEvent_UnknownKind(t *testing.T) {
	_, rpcErr := UnmarshalEvent([]byte(`{"kind":"wibble"}`))
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)
}

func TestUnmarshalEvent_FileContentViolations(t *testing.T) {
	both := `{"kind":"message","messageId":"m1","role":"ROLE_USER","parts":[{"kind":"file","file":{"bytes":"aGk=","uri":"https://example.com/f"}}]}`
	neither := `{"kind":"message","messageId":"m1","role":"ROLE_USER","parts":[{"kind":"file","file":{"name":"f"}}]}`

	for _, raw := range []string{both, neither} {
		_, rpcErr := UnmarshalEvent([]byte(raw))
		require.NotNil(t, rpcErr)
		assert.Equal(t, -32600, rpcErr.Code)
	}
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	env := EventEnvelope{
		Version: 3,
		Event:   NewStatusUpdate("t1", "c1", NewTaskStatus(TaskStateCompleted, nil), true),
	}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded EventEnvelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env.Version, decoded.Version)

	su, ok := decoded.Event.(*TaskStatusUpdateEvent)
	require.True(t, ok)
	assert.True(t, su.Final)
	assert.Equal(t, TaskStateCompleted, su.Status.State)
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(NewStatusUpdate("t", "c", NewTaskStatus(TaskStateWorking, nil), false)))
	assert.False(t, Terminal(NewStatusUpdate("t", "c", NewTaskStatus(TaskStateInputRequired, nil), false)))
	assert.True(t, Terminal(NewStatusUpdate("t", "c", NewTaskStatus(TaskStateCanceled, nil), true)))
	assert.False(t, Terminal(NewTask("t", "c")))
	assert.False(t, Terminal(NewTextMessage(RoleAgent, "hi")))
}

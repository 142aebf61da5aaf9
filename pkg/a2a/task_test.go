package a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskClone_Independence(t *testing.T) {
	task := NewTask("t1", "c1")
	task.History = []Message{*NewTextMessage(RoleUser, "original")}
	task.Artifacts = []Artifact{{
		ArtifactID: "a1",
		Parts:      []Part{NewTextPart("chunk")},
		Metadata:   map[string]any{"k": "v"},
	}}
	task.Metadata = map[string]any{"nested": map[string]any{"key": "value"}}

	clone := task.Clone()
	clone.History[0].Parts[0].Text = "mutated"
	clone.Artifacts[0].Parts[0].Text = "mutated"
	clone.Artifacts[0].Metadata["k"] = "mutated"
	clone.Metadata["nested"].(map[string]any)["key"] = "mutated"
	clone.Status.State = TaskStateFailed

	assert.Equal(t, "original", task.History[0].Parts[0].Text)
	assert.Equal(t, "chunk", task.Artifacts[0].Parts[0].Text)
	assert.Equal(t, "v", task.Artifacts[0].Metadata["k"])
	assert.Equal(t, "value", task.Metadata["nested"].(map[string]any)["key"])
	assert.Equal(t, TaskStateSubmitted, task.Status.State)
}

func TestTaskTrimHistory(t *testing.T) {
	newTask := func() *Task {
		task := NewTask("t1", "c1")
		for _, txt := range []string{"one", "two", "three"} {
			task.History = append(task.History, *NewTextMessage(RoleUser, txt))
		}
		return task
	}

	untouched := newTask()
	untouched.TrimHistory(nil)
	assert.Len(t, untouched.History, 3)

	zero := 0
	dropped := newTask()
	dropped.TrimHistory(&zero)
	assert.Empty(t, dropped.History)

	two := 2
	trimmed := newTask()
	trimmed.TrimHistory(&two)
	require.Len(t, trimmed.History, 2)
	assert.Equal(t, "two", trimmed.History[0].Parts[0].Text)
	assert.Equal(t, "three", trimmed.History[1].Parts[0].Text)

	ten := 10
	full := newTask()
	full.TrimHistory(&ten)
	assert.Len(t, full.History, 3)
}

func TestTaskStateTerminal(t *testing.T) {
	terminal := []TaskState{TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), string(s))
	}
	open := []TaskState{TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired, TaskStateAuthRequired}
	for _, s := range open {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestApplyArtifactUpdate_Replace(t *testing.T) {
	task := NewTask("t1", "c1")
	task.Artifacts = []Artifact{{ArtifactID: "a1", Parts: []Part{NewTextPart("old")}}}

	ApplyArtifactUpdate(task, NewArtifactUpdate("t1", "c1", Artifact{
		ArtifactID: "a1",
		Parts:      []Part{NewTextPart("new")},
	}))

	require.Len(t, task.Artifacts, 1)
	require.Len(t, task.Artifacts[0].Parts, 1)
	assert.Equal(t, "new", task.Artifacts[0].Parts[0].Text)
}

func TestApplyArtifactUpdate_AppendMerges(t *testing.T) {
	task := NewTask("t1", "c1")
	task.Artifacts = []Artifact{{
		ArtifactID: "a1",
		Name:       "report",
		Parts:      []Part{NewTextPart("page one")},
		Metadata:   map[string]any{"lang": "en", "rev": 1},
		Extensions: []string{"ext.one"},
	}}

	update := NewArtifactUpdate("t1", "c1", Artifact{
		ArtifactID: "a1",
		Parts:      []Part{NewTextPart("page two")},
		Metadata:   map[string]any{"rev": 2},
		Extensions: []string{"ext.one", "ext.two"},
	})
	update.Append = true
	ApplyArtifactUpdate(task, update)

	require.Len(t, task.Artifacts, 1)
	merged := task.Artifacts[0]
	require.Len(t, merged.Parts, 2)
	assert.Equal(t, "page one", merged.Parts[0].Text)
	assert.Equal(t, "page two", merged.Parts[1].Text)
	assert.Equal(t, "report", merged.Name) // empty incoming name keeps existing
	assert.Equal(t, 2, merged.Metadata["rev"])
	assert.Equal(t, "en", merged.Metadata["lang"])
	assert.Equal(t, []string{"ext.one", "ext.two"}, merged.Extensions)
}

func TestApplyArtifactUpdate_AppendWithoutMatchAdds(t *testing.T) {
	task := NewTask("t1", "c1")

	update := NewArtifactUpdate("t1", "c1", Artifact{
		ArtifactID: "a9",
		Parts:      []Part{NewTextPart("fresh")},
	})
	update.Append = true
	ApplyArtifactUpdate(task, update)

	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "a9", task.Artifacts[0].ArtifactID)

	// stored copy is defensive
	update.Artifact.Parts[0].Text = "mutated"
	assert.Equal(t, "fresh", task.Artifacts[0].Parts[0].Text)
}

func TestMessageValidate(t *testing.T) {
	empty := &Message{Kind: KindMessage, MessageID: "m1", Role: RoleUser}
	rpcErr := empty.Validate()
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)

	bad := NewMessage(RoleUser, Part{Kind: PartKindFile, File: &FileContent{}})
	rpcErr = bad.Validate()
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)

	assert.Nil(t, NewTextMessage(RoleUser, "ok").Validate())
}

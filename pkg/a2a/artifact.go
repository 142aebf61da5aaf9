package a2a

import "github.com/google/uuid"

/*
Artifact is the structured output of a task.  Artifacts are mutable under
append semantics: multiple updates with the same artifactId accumulate
parts in arrival order.
*/
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Extensions  []string       `json:"extensions,omitempty"`
}

func NewArtifact(parts ...Part) Artifact {
	return Artifact{
		ArtifactID: uuid.NewString(),
		Parts:      parts,
	}
}

// Clone produces an owned deep copy of the artifact.
func (a Artifact) Clone() Artifact {
	out := a
	out.Parts = cloneParts(a.Parts)
	out.Metadata = cloneMap(a.Metadata)
	out.Extensions = cloneStrings(a.Extensions)
	return out
}

func cloneArtifacts(in []Artifact) []Artifact {
	if in == nil {
		return nil
	}
	out := make([]Artifact, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

/*
ApplyArtifactUpdate merges an artifact update into a task's artifact list.
The merge rules are shared by every store implementation so replace and
append semantics stay identical no matter where projections live.

Replace (append=false) upserts the artifact keyed by artifactId.  Append
concatenates parts onto an existing artifact with the same id, lets
incoming metadata win key-by-key, unions extensions and overwrites name
and description only when the incoming values are non-empty.  An append
without a match degrades to an upsert of a defensive copy.
*/
func ApplyArtifactUpdate(task *Task, update *TaskArtifactUpdateEvent) {
	if task == nil {
		return
	}
	incoming := update.Artifact.Clone()

	idx := -1
	for i := range task.Artifacts {
		if task.Artifacts[i].ArtifactID == incoming.ArtifactID {
			idx = i
			break
		}
	}

	if !update.Append || idx < 0 {
		if idx < 0 {
			task.Artifacts = append(task.Artifacts, incoming)
		} else {
			task.Artifacts[idx] = incoming
		}
		return
	}

	existing := &task.Artifacts[idx]
	existing.Parts = append(existing.Parts, incoming.Parts...)

	if len(incoming.Metadata) > 0 {
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]any, len(incoming.Metadata))
		}
		for k, v := range incoming.Metadata {
			existing.Metadata[k] = v
		}
	}

	for _, ext := range incoming.Extensions {
		found := false
		for _, have := range existing.Extensions {
			if have == ext {
				found = true
				break
			}
		}
		if !found {
			existing.Extensions = append(existing.Extensions, ext)
		}
	}

	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	if incoming.Description != "" {
		existing.Description = incoming.Description
	}
}

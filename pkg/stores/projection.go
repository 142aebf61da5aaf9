package stores

import "github.com/openagentic/a2a-core/pkg/a2a"

/*
applyEvent is the projection fold.  It is pure over the event sequence:
replaying a prefix from an empty state always produces the same result as
the inline projection maintained during append.

A task event replaces the whole state.  Messages append to history.  A
status update supersedes the previous status, moving its attached message
(if any) into history first.  Artifact updates go through the shared merge
helper so replace/append semantics match every other store.
*/
func applyEvent(state *a2a.Task, ev a2a.Event) *a2a.Task {
	switch e := ev.(type) {
	case *a2a.Task:
		return e.Clone()
	case *a2a.Message:
		if state != nil {
			state.History = append(state.History, *e.Clone())
		}
	case *a2a.TaskStatusUpdateEvent:
		if state != nil {
			if state.Status.Message != nil {
				state.History = append(state.History, *state.Status.Message)
			}
			state.Status = e.Status.Clone()
		}
	case *a2a.TaskArtifactUpdateEvent:
		a2a.ApplyArtifactUpdate(state, e)
	}
	return state
}

// Apply folds a single event into a projection. Store implementations
// outside this package share the fold through it.
func Apply(state *a2a.Task, ev a2a.Event) *a2a.Task {
	return applyEvent(state, ev)
}

// Replay folds an event sequence from scratch. Used by recovery paths and
// to verify the inline projection in tests.
func Replay(events []a2a.EventEnvelope) *a2a.Task {
	var state *a2a.Task
	for _, env := range events {
		state = applyEvent(state, env.Event)
	}
	return state
}

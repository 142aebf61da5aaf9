package stores

import (
	"context"

	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
)

/*
TaskStore is the persistence contract of the runtime: an append-only,
per-task, versioned log of stream events with an inline projection folded
from it.  The log is the source of truth; the projection exists for O(1)
lookup.

Versions within a partition are 0-based, contiguous and monotonic.  Across
partitions no ordering is defined.  Implementations must hand out deep
copies of projections so callers may mutate results freely.
*/
type TaskStore interface {
	// Append atomically appends an event to the task's log and returns the
	// version it was assigned. When expectedVersion is non-nil and does not
	// equal the current log length the append fails with an invalid-request
	// error (optimistic concurrency). A successful append updates the
	// projection and notifies live subscribers.
	Append(ctx context.Context, taskID string, ev a2a.Event, expectedVersion *int64) (int64, *errors.RpcError)

	// Read returns a snapshot of the events stored at call time, starting at
	// fromVersion. Unknown tasks yield an empty slice.
	Read(ctx context.Context, taskID string, fromVersion int64) ([]a2a.EventEnvelope, *errors.RpcError)

	// Exists reports whether any event has been stored for the task.
	Exists(ctx context.Context, taskID string) bool

	// LatestVersion returns the version of the last stored event, or -1 when
	// the task is unknown.
	LatestVersion(ctx context.Context, taskID string) int64

	// GetTask returns a deep clone of the task projection, or nil when the
	// task is unknown.
	GetTask(ctx context.Context, taskID string) (*a2a.Task, *errors.RpcError)

	// GetTaskWithVersion returns an atomic snapshot of the projection
	// together with its version.
	GetTaskWithVersion(ctx context.Context, taskID string) (*a2a.Task, int64, *errors.RpcError)

	// ListTasks pages over projections with filtering and sorting applied.
	ListTasks(ctx context.Context, params a2a.ListTasksParams) (*a2a.ListTasksResult, *errors.RpcError)

	// Subscribe tails the task's event log with catch-up-then-live
	// semantics, starting after afterVersion. The returned channel closes
	// when a terminal event has been delivered, the context is canceled, or
	// the subscriber falls off the end of a completed stream. No event is
	// delivered twice and none with version > afterVersion is missed.
	Subscribe(ctx context.Context, taskID string, afterVersion int64) (<-chan a2a.EventEnvelope, *errors.RpcError)
}

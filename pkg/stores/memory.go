package stores

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
)

// DefaultPageSize bounds listTasks pages when the caller does not ask for
// a specific size.
const DefaultPageSize = 50

/*
taskLog is one partition: the ordered event vector, the inline projection
and the live subscriber set.  A single mutex serializes the
version-assignment / append / projection-update critical section.  The
subscriber set has its own lock, acquired before the log mutex is
released on append, which keeps delivery in version order without
holding up version assignment for the duration of the fan-out.
*/
type taskLog struct {
	mu         sync.Mutex
	events     []a2a.EventEnvelope
	projection *a2a.Task

	subMu sync.Mutex
	subs  map[*subscriberQueue]struct{}
}

func (l *taskLog) register(q *subscriberQueue) {
	l.subMu.Lock()
	l.subs[q] = struct{}{}
	l.subMu.Unlock()
}

func (l *taskLog) deregister(q *subscriberQueue) {
	l.subMu.Lock()
	delete(l.subs, q)
	l.subMu.Unlock()
}

/*
InMemoryTaskStore is the reference TaskStore: an ordered per-task event
vector with an inline projection.  The global task map is a lock-free
concurrent map keyed by taskId; all other coordination is per task.
*/
type InMemoryTaskStore struct {
	logs sync.Map // taskId -> *taskLog
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{}
}

// log returns the partition for taskID, creating it on first touch.
func (s *InMemoryTaskStore) log(taskID string) *taskLog {
	if l, ok := s.logs.Load(taskID); ok {
		return l.(*taskLog)
	}
	l, _ := s.logs.LoadOrStore(taskID, &taskLog{subs: make(map[*subscriberQueue]struct{})})
	return l.(*taskLog)
}

// peek returns the partition without creating it.
func (s *InMemoryTaskStore) peek(taskID string) (*taskLog, bool) {
	l, ok := s.logs.Load(taskID)
	if !ok {
		return nil, false
	}
	return l.(*taskLog), true
}

func (s *InMemoryTaskStore) Append(ctx context.Context, taskID string, ev a2a.Event, expectedVersion *int64) (int64, *errors.RpcError) {
	if err := ctx.Err(); err != nil {
		return -1, errors.ErrInternal.WithMessagef("append canceled")
	}

	l := s.log(taskID)

	l.mu.Lock()
	version := int64(len(l.events))
	if expectedVersion != nil && *expectedVersion != version {
		l.mu.Unlock()
		return -1, errors.ErrInvalidRequest.WithMessagef(
			"version conflict for task %s: expected %d, log is at %d", taskID, *expectedVersion, version)
	}

	stored := a2a.CloneEvent(ev)
	env := a2a.EventEnvelope{Version: version, Event: stored}
	l.events = append(l.events, env)
	l.projection = applyEvent(l.projection, stored)
	terminal := a2a.Terminal(stored)

	// The subscriber lock is taken before the log mutex is released: the
	// appender of version v+1 cannot start delivering until version v has
	// been pushed everywhere, so each queue sees versions in order.
	l.subMu.Lock()
	l.mu.Unlock()

	log.Debug("event appended", "task", taskID, "version", version, "kind", stored.EventKind())

	for q := range l.subs {
		q.push(a2a.EventEnvelope{Version: version, Event: a2a.CloneEvent(stored)})
		if terminal {
			q.close()
		}
	}
	l.subMu.Unlock()

	return version, nil
}

func (s *InMemoryTaskStore) Read(ctx context.Context, taskID string, fromVersion int64) ([]a2a.EventEnvelope, *errors.RpcError) {
	l, ok := s.peek(taskID)
	if !ok {
		return nil, nil
	}

	l.mu.Lock()
	if fromVersion < 0 {
		fromVersion = 0
	}
	if fromVersion >= int64(len(l.events)) {
		l.mu.Unlock()
		return nil, nil
	}
	snapshot := make([]a2a.EventEnvelope, len(l.events[fromVersion:]))
	copy(snapshot, l.events[fromVersion:])
	l.mu.Unlock()

	for i := range snapshot {
		snapshot[i].Event = a2a.CloneEvent(snapshot[i].Event)
	}
	return snapshot, nil
}

func (s *InMemoryTaskStore) Exists(ctx context.Context, taskID string) bool {
	l, ok := s.peek(taskID)
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events) > 0
}

func (s *InMemoryTaskStore) LatestVersion(ctx context.Context, taskID string) int64 {
	l, ok := s.peek(taskID)
	if !ok {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.events)) - 1
}

func (s *InMemoryTaskStore) GetTask(ctx context.Context, taskID string) (*a2a.Task, *errors.RpcError) {
	l, ok := s.peek(taskID)
	if !ok {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projection.Clone(), nil
}

func (s *InMemoryTaskStore) GetTaskWithVersion(ctx context.Context, taskID string) (*a2a.Task, int64, *errors.RpcError) {
	l, ok := s.peek(taskID)
	if !ok {
		return nil, -1, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projection.Clone(), int64(len(l.events)) - 1, nil
}

func (s *InMemoryTaskStore) ListTasks(ctx context.Context, params a2a.ListTasksParams) (*a2a.ListTasksResult, *errors.RpcError) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	offset := 0
	if params.PageToken != "" {
		parsed, err := strconv.Atoi(params.PageToken)
		if err != nil || parsed < 0 {
			return nil, errors.ErrInvalidParams.WithMessagef("invalid page token %q", params.PageToken)
		}
		offset = parsed
	}

	pageSize := params.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	var tasks []*a2a.Task
	s.logs.Range(func(_, value any) bool {
		l := value.(*taskLog)
		l.mu.Lock()
		task := l.projection.Clone()
		l.mu.Unlock()
		if task == nil {
			return true
		}
		if params.ContextID != "" && task.ContextID != params.ContextID {
			return true
		}
		if params.State != "" && task.Status.State != params.State {
			return true
		}
		if params.StatusTimestampAfter != nil {
			if task.Status.Timestamp == nil || !task.Status.Timestamp.After(*params.StatusTimestampAfter) {
				return true
			}
		}
		tasks = append(tasks, task)
		return true
	})

	// Newest status first; tasks without a timestamp sort last. Ties break
	// on id so pagination stays stable.
	sort.Slice(tasks, func(i, j int) bool {
		ti, tj := tasks[i].Status.Timestamp, tasks[j].Status.Timestamp
		switch {
		case ti == nil && tj == nil:
			return tasks[i].ID < tasks[j].ID
		case ti == nil:
			return false
		case tj == nil:
			return true
		case ti.Equal(*tj):
			return tasks[i].ID < tasks[j].ID
		default:
			return ti.After(*tj)
		}
	})

	total := len(tasks)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	page := tasks[offset:end]

	next := ""
	if end < total {
		next = strconv.Itoa(end)
	}

	for _, task := range page {
		task.TrimHistory(params.HistoryLength)
		if !params.IncludeArtifacts {
			task.Artifacts = nil
		}
	}

	return &a2a.ListTasksResult{
		Tasks:         page,
		TotalSize:     total,
		NextPageToken: next,
		PageSize:      pageSize,
	}, nil
}

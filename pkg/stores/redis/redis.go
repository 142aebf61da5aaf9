// Package redis provides a key/value backed TaskStore for deployments that
// already run Redis.  It keeps the per-task event list and the projection
// snapshot as plain values and relaxes the concurrency discipline to a
// per-process lock, which is the documented trade-off for simple stores:
// version assignment is only serialized within one node.
package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"

	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
	"github.com/openagentic/a2a-core/pkg/stores"
)

// pollInterval paces the live tail. A kv store has no push channel, so
// subscribers poll the event list for growth.
const pollInterval = 200 * time.Millisecond

type TaskStore struct {
	client *goredis.Client
	prefix string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTaskStore(client *goredis.Client, prefix string) *TaskStore {
	if prefix == "" {
		prefix = "a2a"
	}
	return &TaskStore{
		client: client,
		prefix: prefix,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *TaskStore) eventsKey(taskID string) string { return s.prefix + ":events:" + taskID }
func (s *TaskStore) taskKey(taskID string) string   { return s.prefix + ":task:" + taskID }

func (s *TaskStore) lock(taskID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[taskID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[taskID] = l
	}
	return l
}

func (s *TaskStore) Append(ctx context.Context, taskID string, ev a2a.Event, expectedVersion *int64) (int64, *errors.RpcError) {
	l := s.lock(taskID)
	l.Lock()
	defer l.Unlock()

	length, err := s.client.LLen(ctx, s.eventsKey(taskID)).Result()
	if err != nil {
		return -1, errors.ErrInternal.WithMessagef("redis llen: %v", err)
	}
	version := length
	if expectedVersion != nil && *expectedVersion != version {
		return -1, errors.ErrInvalidRequest.WithMessagef(
			"version conflict for task %s: expected %d, log is at %d", taskID, *expectedVersion, version)
	}

	env := a2a.EventEnvelope{Version: version, Event: a2a.CloneEvent(ev)}
	payload, jsonErr := json.Marshal(env)
	if jsonErr != nil {
		return -1, errors.ErrInternal.WithMessagef("marshal envelope: %v", jsonErr)
	}

	projection, rpcErr := s.loadProjection(ctx, taskID)
	if rpcErr != nil {
		return -1, rpcErr
	}
	projection = stores.Apply(projection, env.Event)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.eventsKey(taskID), payload)
	if projection != nil {
		snapshot, jsonErr := json.Marshal(projection)
		if jsonErr != nil {
			return -1, errors.ErrInternal.WithMessagef("marshal projection: %v", jsonErr)
		}
		pipe.Set(ctx, s.taskKey(taskID), snapshot, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return -1, errors.ErrInternal.WithMessagef("redis append: %v", err)
	}

	log.Debug("event appended", "store", "redis", "task", taskID, "version", version, "kind", env.Event.EventKind())
	return version, nil
}

func (s *TaskStore) loadProjection(ctx context.Context, taskID string) (*a2a.Task, *errors.RpcError) {
	raw, err := s.client.Get(ctx, s.taskKey(taskID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ErrInternal.WithMessagef("redis get: %v", err)
	}
	var task a2a.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, errors.ErrInternal.WithMessagef("corrupt task snapshot for %s: %v", taskID, err)
	}
	return &task, nil
}

func (s *TaskStore) Read(ctx context.Context, taskID string, fromVersion int64) ([]a2a.EventEnvelope, *errors.RpcError) {
	if fromVersion < 0 {
		fromVersion = 0
	}
	raw, err := s.client.LRange(ctx, s.eventsKey(taskID), fromVersion, -1).Result()
	if err != nil {
		return nil, errors.ErrInternal.WithMessagef("redis lrange: %v", err)
	}
	out := make([]a2a.EventEnvelope, 0, len(raw))
	for _, item := range raw {
		var env a2a.EventEnvelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			return nil, errors.ErrInternal.WithMessagef("corrupt event for task %s: %v", taskID, err)
		}
		out = append(out, env)
	}
	return out, nil
}

func (s *TaskStore) Exists(ctx context.Context, taskID string) bool {
	length, err := s.client.LLen(ctx, s.eventsKey(taskID)).Result()
	return err == nil && length > 0
}

func (s *TaskStore) LatestVersion(ctx context.Context, taskID string) int64 {
	length, err := s.client.LLen(ctx, s.eventsKey(taskID)).Result()
	if err != nil {
		return -1
	}
	return length - 1
}

func (s *TaskStore) GetTask(ctx context.Context, taskID string) (*a2a.Task, *errors.RpcError) {
	task, rpcErr := s.loadProjection(ctx, taskID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return task.Clone(), nil
}

func (s *TaskStore) GetTaskWithVersion(ctx context.Context, taskID string) (*a2a.Task, int64, *errors.RpcError) {
	l := s.lock(taskID)
	l.Lock()
	defer l.Unlock()

	task, rpcErr := s.loadProjection(ctx, taskID)
	if rpcErr != nil {
		return nil, -1, rpcErr
	}
	return task.Clone(), s.LatestVersion(ctx, taskID), nil
}

// ListTasks returns an empty page. Redis has no secondary indexes over the
// snapshots and simple stores are allowed to opt out of listing.
func (s *TaskStore) ListTasks(ctx context.Context, params a2a.ListTasksParams) (*a2a.ListTasksResult, *errors.RpcError) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	pageSize := params.PageSize
	if pageSize == 0 {
		pageSize = stores.DefaultPageSize
	}
	return &a2a.ListTasksResult{Tasks: []*a2a.Task{}, PageSize: pageSize}, nil
}

// Subscribe tails the event list by polling. Ordering and dedup follow
// from reading the list by index, so per-subscriber guarantees hold even
// without a push channel.
func (s *TaskStore) Subscribe(ctx context.Context, taskID string, afterVersion int64) (<-chan a2a.EventEnvelope, *errors.RpcError) {
	out := make(chan a2a.EventEnvelope)

	go func() {
		defer close(out)
		cursor := afterVersion

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			events, rpcErr := s.Read(ctx, taskID, cursor+1)
			if rpcErr != nil {
				log.Error("redis subscribe read failed", "task", taskID, "error", rpcErr)
				return
			}
			for _, env := range events {
				if env.Version <= cursor {
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
				cursor = env.Version
				if a2a.Terminal(env.Event) {
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

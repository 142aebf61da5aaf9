package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
)

/*
PushConfigStore keeps per-task push notification configurations.  The
runtime only stores them; delivery is the responsibility of the host.
Every operation fails with PushNotificationNotSupported unless the agent
card advertises the capability.
*/
type PushConfigStore struct {
	mu        sync.RWMutex
	supported bool
	configs   map[string][]a2a.PushNotificationConfig
}

func NewPushConfigStore(supported bool) *PushConfigStore {
	return &PushConfigStore{
		supported: supported,
		configs:   make(map[string][]a2a.PushNotificationConfig),
	}
}

// Set registers a config for a task, minting an id when absent.
func (s *PushConfigStore) Set(_ context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, *errors.RpcError) {
	if !s.supported {
		return nil, errors.ErrPushNotificationNotSupported
	}

	if params.TaskID == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("taskId must not be empty")
	}

	if params.Config.URL == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("pushNotificationConfig.url must not be empty")
	}

	cfg := params.Config

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.configs[params.TaskID]

	replaced := false
	for i, c := range existing {
		if c.ID == cfg.ID {
			existing[i] = cfg
			replaced = true
			break
		}
	}

	if !replaced {
		existing = append(existing, cfg)
	}

	s.configs[params.TaskID] = existing

	return &a2a.TaskPushNotificationConfig{TaskID: params.TaskID, Config: cfg}, nil
}

// Get returns the first config registered for a task.
func (s *PushConfigStore) Get(_ context.Context, taskID string) (*a2a.TaskPushNotificationConfig, *errors.RpcError) {
	if !s.supported {
		return nil, errors.ErrPushNotificationNotSupported
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := s.configs[taskID]

	if len(configs) == 0 {
		return nil, errors.ErrTaskNotFound.WithMessagef(
			"no push notification config for task %s", taskID,
		)
	}

	return &a2a.TaskPushNotificationConfig{TaskID: taskID, Config: configs[0]}, nil
}

// List returns every config registered for a task.
func (s *PushConfigStore) List(_ context.Context, taskID string) ([]a2a.TaskPushNotificationConfig, *errors.RpcError) {
	if !s.supported {
		return nil, errors.ErrPushNotificationNotSupported
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := s.configs[taskID]
	out := make([]a2a.TaskPushNotificationConfig, 0, len(configs))

	for _, cfg := range configs {
		out = append(out, a2a.TaskPushNotificationConfig{TaskID: taskID, Config: cfg})
	}

	return out, nil
}

// Delete removes one config by id. Deleting an unknown id is a no-op.
func (s *PushConfigStore) Delete(_ context.Context, taskID, configID string) *errors.RpcError {
	if !s.supported {
		return errors.ErrPushNotificationNotSupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.configs[taskID]

	for i, cfg := range configs {
		if cfg.ID == configID {
			s.configs[taskID] = append(configs[:i], configs[i+1:]...)
			break
		}
	}

	if len(s.configs[taskID]) == 0 {
		delete(s.configs, taskID)
	}

	return nil
}

package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps values in process memory. It backs single-node
// deployments without redis and the service tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	failNext error
}

// NewMemoryStore creates an in-memory Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	if err := s.takeFailure(); err != nil {
		return err
	}

	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("localstore unmarshal error: %w", err)
	}
	return nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	if err := s.takeFailure(); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore marshal error: %w", err)
	}

	s.mu.Lock()
	s.values[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.takeFailure(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, key := range keys {
		delete(s.values, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// FailNextOp makes the next store operation return err. Test hook.
func (s *MemoryStore) FailNextOp(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *MemoryStore) takeFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	return nil
}

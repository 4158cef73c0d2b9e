// Package prefs provides the client-local preference store: favorites,
// unsynced local drafts, and generator settings. It is independent of the
// remote store and survives restarts through whatever Store implementation
// it is given.
//
// Store is a deliberately small key-value port so the engine depends on an
// interface: the production implementation persists through GORM
// (repo.PrefStore) and tests use the in-memory Memory fake.
package prefs

import (
	"context"
	"sync"
)

// Store is the key-value persistence port. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error
}

// Memory is an in-memory Store for tests and ephemeral runs.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

// Get implements Store.
func (s *Memory) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

// Set implements Store.
func (s *Memory) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Remove implements Store.
func (s *Memory) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

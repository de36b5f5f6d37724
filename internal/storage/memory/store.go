// Package memory keeps tokens in process memory. Used by tests and by
// one-shot CLI runs that must not persist credentials.
package memory

import (
	"context"
	"sync"

	"hostiq/internal/adapters/observability"
)

type Store struct {
	mu sync.RWMutex
	m  map[string]string
}

func New() *Store { return &Store{m: map[string]string{}} }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if ok {
		observability.ObserveTokenStore("memory", "hit")
	} else {
		observability.ObserveTokenStore("memory", "miss")
	}
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	observability.ObserveTokenStore("memory", "set")
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	observability.ObserveTokenStore("memory", "del")
	return nil
}

// Package tokenfile persists tokens in a user-only JSON file, the desktop
// counterpart of the phone's secure store.
package tokenfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hostiq/internal/adapters/observability"
)

// Store maps profile -> token name -> value in one file.
type Store struct {
	mu      sync.Mutex
	path    string
	profile string
}

func New(path, profile string) (*Store, error) {
	if path == "" {
		return nil, errors.New("token file path is required")
	}
	if profile == "" {
		profile = "default"
	}
	return &Store{path: path, profile: profile}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := all[s.profile][key]
	if ok {
		observability.ObserveTokenStore("file", "hit")
	} else {
		observability.ObserveTokenStore("file", "miss")
	}
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}
	if all[s.profile] == nil {
		all[s.profile] = map[string]string{}
	}
	all[s.profile][key] = value
	observability.ObserveTokenStore("file", "set")
	return s.save(all)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := all[s.profile][key]; !ok {
		return nil
	}
	delete(all[s.profile], key)
	if len(all[s.profile]) == 0 {
		delete(all, s.profile)
	}
	observability.ObserveTokenStore("file", "del")
	return s.save(all)
}

func (s *Store) load() (map[string]map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	all := map[string]map[string]string{}
	if len(b) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", s.path, err)
	}
	return all, nil
}

// save writes through a temp file and rename so a crash never leaves a
// half-written file behind.
func (s *Store) save(all map[string]map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Package local persists subscriber state as a JSON document on the local
// filesystem.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JakeFAU/ulytau-insight/internal/storage"
)

// Config captures the parameters for the file store.
type Config struct {
	// Path is the JSON document location.
	Path string `mapstructure:"path" yaml:"path"`
	// SeenLimit bounds the seen-link history.
	SeenLimit int `mapstructure:"seen_limit" yaml:"seen_limit"`
}

// Store loads the document once and rewrites it after every mutation.
type Store struct {
	path  string
	limit int

	mu    sync.RWMutex
	state storage.State
}

// New opens the document at cfg.Path. A missing or empty file starts empty;
// a malformed one is an error.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("state path is required")
	}
	limit := cfg.SeenLimit
	if limit <= 0 {
		limit = storage.MaxSeenLinks
	}
	s := &Store{path: cfg.Path, limit: limit}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.state.Normalize()
		return nil
	case err != nil:
		return fmt.Errorf("read state file: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &s.state); err != nil {
			return fmt.Errorf("decode state file: %w", err)
		}
	}
	s.state.Normalize()
	return nil
}

// persist writes the document through a temp file and rename. Callers hold mu.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// mutate applies fn and persists when it reports a change. A failed write
// rolls the in-memory state back.
func (s *Store) mutate(fn func(*storage.State) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.state.Clone()
	if !fn(&s.state) {
		return false, nil
	}
	if err := s.persist(); err != nil {
		s.state = before
		return false, err
	}
	return true, nil
}

// AddSubscriber implements news.SubscriberStore.
func (s *Store) AddSubscriber(_ context.Context, chatID int64) (bool, error) {
	return s.mutate(func(st *storage.State) bool { return st.AddSubscriber(chatID) })
}

// RemoveSubscriber implements news.SubscriberStore.
func (s *Store) RemoveSubscriber(_ context.Context, chatID int64) (bool, error) {
	return s.mutate(func(st *storage.State) bool { return st.RemoveSubscriber(chatID) })
}

// Subscribers implements news.SubscriberStore.
func (s *Store) Subscribers(context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().Subscribers, nil
}

// IsSeen implements news.SubscriberStore.
func (s *Store) IsSeen(_ context.Context, link string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.HasSeen(link), nil
}

// MarkSeen implements news.SubscriberStore.
func (s *Store) MarkSeen(_ context.Context, link string) (bool, error) {
	return s.mutate(func(st *storage.State) bool { return st.MarkSeen(link, s.limit) })
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }

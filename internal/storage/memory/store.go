// Package memory keeps subscriber state in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/ulytau-insight/internal/storage"
)

// Store is an in-memory news.SubscriberStore.
type Store struct {
	mu    sync.RWMutex
	state storage.State
	limit int
}

// New creates an empty Store. A non-positive limit uses storage.MaxSeenLinks.
func New(limit int) *Store {
	if limit <= 0 {
		limit = storage.MaxSeenLinks
	}
	s := &Store{limit: limit}
	s.state.Normalize()
	return s
}

// AddSubscriber implements news.SubscriberStore.
func (s *Store) AddSubscriber(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AddSubscriber(chatID), nil
}

// RemoveSubscriber implements news.SubscriberStore.
func (s *Store) RemoveSubscriber(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RemoveSubscriber(chatID), nil
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
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.MarkSeen(link, s.limit), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

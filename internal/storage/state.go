// Package storage holds the subscriber and seen-link state shared by the
// notification monitor and the bot, plus the backends that persist it.
package storage

import (
	"errors"
	"slices"
)

// MaxSeenLinks bounds the seen-link history. The oldest links are evicted.
const MaxSeenLinks = 500

// ErrNotConfigured is returned by backends used before they are ready.
var ErrNotConfigured = errors.New("store is not configured")

// State is the persisted document. Both lists keep insertion order.
type State struct {
	Subscribers []int64  `json:"subscribers"`
	SeenLinks   []string `json:"seen_links"`
}

// Normalize replaces nil lists so the document always encodes as arrays.
func (s *State) Normalize() {
	if s.Subscribers == nil {
		s.Subscribers = []int64{}
	}
	if s.SeenLinks == nil {
		s.SeenLinks = []string{}
	}
}

// AddSubscriber reports whether chatID was newly added.
func (s *State) AddSubscriber(chatID int64) bool {
	if slices.Contains(s.Subscribers, chatID) {
		return false
	}
	s.Subscribers = append(s.Subscribers, chatID)
	return true
}

// RemoveSubscriber reports whether chatID was present.
func (s *State) RemoveSubscriber(chatID int64) bool {
	i := slices.Index(s.Subscribers, chatID)
	if i < 0 {
		return false
	}
	s.Subscribers = slices.Delete(s.Subscribers, i, i+1)
	return true
}

// HasSeen reports whether link was marked.
func (s *State) HasSeen(link string) bool {
	return slices.Contains(s.SeenLinks, link)
}

// MarkSeen records link, evicting the oldest entries beyond limit. It reports
// whether link was new.
func (s *State) MarkSeen(link string, limit int) bool {
	if link == "" || s.HasSeen(link) {
		return false
	}
	s.SeenLinks = append(s.SeenLinks, link)
	if limit > 0 && len(s.SeenLinks) > limit {
		s.SeenLinks = slices.Clone(s.SeenLinks[len(s.SeenLinks)-limit:])
	}
	return true
}

// Clone deep-copies the state.
func (s *State) Clone() State {
	return State{
		Subscribers: slices.Clone(s.Subscribers),
		SeenLinks:   slices.Clone(s.SeenLinks),
	}
}

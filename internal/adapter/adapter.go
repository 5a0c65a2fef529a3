// Package adapter turns the responses of each source kind into raw entries.
//
// Every kind implements news.Adapter. Set dispatches on Source.Kind, so the
// orchestrator only ever sees the single contract.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// Default per-request timeouts by kind.
const (
	DefaultFeedTimeout    = 6 * time.Second
	DefaultListingTimeout = 5 * time.Second
	DefaultChannelTimeout = 6 * time.Second
)

// Config tunes the adapters.
type Config struct {
	FeedTimeout    time.Duration
	ListingTimeout time.Duration
	ChannelTimeout time.Duration
	Listing        ListingConfig
}

// Set routes each source to the adapter for its kind.
type Set struct {
	adapters map[news.Kind]news.Adapter
}

// NewSet wires the three built-in adapters around one getter.
func NewSet(getter news.Getter, cfg Config) *Set {
	return &Set{adapters: map[news.Kind]news.Adapter{
		news.KindFeed:        NewFeed(getter, orDefault(cfg.FeedTimeout, DefaultFeedTimeout)),
		news.KindHTMLListing: NewListing(getter, orDefault(cfg.ListingTimeout, DefaultListingTimeout), cfg.Listing),
		news.KindChannelView: NewChannel(getter, orDefault(cfg.ChannelTimeout, DefaultChannelTimeout)),
	}}
}

// Fetch implements news.Adapter.
func (s *Set) Fetch(ctx context.Context, src news.Source) ([]news.RawEntry, error) {
	a, ok := s.adapters[src.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", news.ErrUnknownKind, src.Kind)
	}
	return a.Fetch(ctx, src)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

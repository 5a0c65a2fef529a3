package news

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownKind is returned when a source declares an unsupported adapter kind.
var ErrUnknownKind = errors.New("unknown source kind")

// Kind selects the adapter that understands a source's response.
type Kind string

// Supported source kinds.
const (
	KindFeed        Kind = "feed"
	KindHTMLListing Kind = "html-listing"
	KindChannelView Kind = "channel-view"
)

// ParseKind maps configuration spellings onto a Kind.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "feed", "rss", "google_rss", "atom":
		return KindFeed, nil
	case "html-listing", "html_list", "html":
		return KindHTMLListing, nil
	case "channel-view", "telegram", "channel":
		return KindChannelView, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

// UnmarshalYAML accepts any spelling understood by ParseKind.
func (k *Kind) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Source describes one configured remote origin. URL is its identity.
type Source struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
	Kind Kind   `json:"type" yaml:"type"`
	// Base overrides the origin used to resolve relative links.
	Base string `json:"base,omitempty" yaml:"base,omitempty"`
}

// RawEntry is what an adapter extracts from a source before filtering.
type RawEntry struct {
	Title     string
	Link      string
	Summary   string
	Published string
	Source    string
	// Plain marks Title and Summary as visible text already extracted from
	// markup. Such text is not parsed as HTML again.
	Plain bool
}

// Category classifies an item by its legal significance.
type Category string

// Category values, ordered by precedence.
const (
	CategoryConstitution Category = "constitution"
	CategoryLaw          Category = "law"
	CategoryNews         Category = "news"
)

// Item is a filtered, scored record ready for delivery.
type Item struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Category Category `json:"type"`
	Source   string   `json:"source"`
	Link     string   `json:"link"`
	Score    int      `json:"score"`
}

// Outcome describes how a source fared during one fetch cycle.
type Outcome string

// Outcome values reported in source status records.
const (
	OutcomeOK          Outcome = "ok"
	OutcomeFailed      Outcome = "failed"
	OutcomeBreakerOpen Outcome = "breaker_open"
	OutcomeAbandoned   Outcome = "abandoned"
)

// SourceStatus is the diagnostic record kept for each source.
type SourceStatus struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Kind      Kind      `json:"type"`
	OK        bool      `json:"ok"`
	Outcome   Outcome   `json:"outcome"`
	Entries   int       `json:"entries_count"`
	Error     string    `json:"error,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Circuit   string    `json:"circuit"`
	CheckedAt time.Time `json:"checked_at"`
}

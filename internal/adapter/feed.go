package adapter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// Feed reads RSS, Atom and JSON feeds.
type Feed struct {
	getter  news.Getter
	timeout time.Duration
}

// NewFeed builds a feed adapter.
func NewFeed(getter news.Getter, timeout time.Duration) *Feed {
	return &Feed{getter: getter, timeout: timeout}
}

// Fetch implements news.Adapter.
func (f *Feed) Fetch(ctx context.Context, src news.Source) ([]news.RawEntry, error) {
	body, err := f.getter.Get(ctx, src.URL, f.timeout)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	entries := make([]news.RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, news.RawEntry{
			Title:     item.Title,
			Link:      firstNonEmpty(item.Link, firstLink(item.Links)),
			Summary:   firstNonEmpty(item.Description, item.Content),
			Published: firstNonEmpty(item.Published, item.Updated),
			Source:    src.Name,
		})
	}
	return entries, nil
}

func firstLink(links []string) string {
	if len(links) == 0 {
		return ""
	}
	return links[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

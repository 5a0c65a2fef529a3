package adapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/textnorm"
)

// Channel post limits.
const (
	MinPostLen    = 10
	PostTitleSize = 100
)

// Channel reads the public web view of a Telegram channel (t.me/s/<name>).
type Channel struct {
	getter  news.Getter
	timeout time.Duration
}

// NewChannel builds a channel-view adapter.
func NewChannel(getter news.Getter, timeout time.Duration) *Channel {
	return &Channel{getter: getter, timeout: timeout}
}

// Fetch implements news.Adapter.
func (c *Channel) Fetch(ctx context.Context, src news.Source) ([]news.RawEntry, error) {
	body, err := c.getter.Get(ctx, src.URL, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse channel: %w", err)
	}

	var entries []news.RawEntry
	doc.Find("div.tgme_widget_message_wrap").Each(func(_ int, wrap *goquery.Selection) {
		msg := wrap.Find("div.tgme_widget_message").First()
		if msg.Length() == 0 {
			return
		}
		textBlock := msg.Find("div.tgme_widget_message_text").First()
		if textBlock.Length() == 0 {
			return
		}
		raw := textnorm.Text(textBlock)
		if textnorm.Len(raw) < MinPostLen {
			return
		}
		text := textnorm.Scrub(raw)
		entries = append(entries, news.RawEntry{
			Title:     textnorm.Truncate(text, PostTitleSize),
			Link:      strings.TrimSpace(msg.Find("a.tgme_widget_message_date").First().AttrOr("href", "")),
			Summary:   text,
			Published: strings.TrimSpace(msg.Find("time.time").First().AttrOr("datetime", "")),
			Source:    src.Name,
			Plain:     true,
		})
	})
	return entries, nil
}

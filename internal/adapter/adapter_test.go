package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

type stubGetter struct {
	mu       sync.Mutex
	bodies   map[string]string
	err      error
	timeouts []time.Duration
}

func (s *stubGetter) Get(_ context.Context, url string, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeouts = append(s.timeouts, timeout)
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.bodies[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func TestSetDispatchesByKind(t *testing.T) {
	t.Parallel()

	getter := &stubGetter{bodies: map[string]string{
		"https://example.kz/rss":  rssFixture,
		"https://t.me/s/ulytau":   channelFixture,
		"https://example.kz/news": listingFixture,
	}}
	set := NewSet(getter, Config{})

	feed, err := set.Fetch(context.Background(), news.Source{Name: "rss", URL: "https://example.kz/rss", Kind: news.KindFeed})
	require.NoError(t, err)
	require.Len(t, feed, 2)

	channel, err := set.Fetch(context.Background(), news.Source{Name: "tg", URL: "https://t.me/s/ulytau", Kind: news.KindChannelView})
	require.NoError(t, err)
	require.NotEmpty(t, channel)

	listing, err := set.Fetch(context.Background(), news.Source{Name: "site", URL: "https://example.kz/news", Kind: news.KindHTMLListing})
	require.NoError(t, err)
	require.NotEmpty(t, listing)

	require.Equal(t, []time.Duration{DefaultFeedTimeout, DefaultChannelTimeout, DefaultListingTimeout}, getter.timeouts)
}

func TestSetRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	set := NewSet(&stubGetter{}, Config{})
	_, err := set.Fetch(context.Background(), news.Source{Name: "x", URL: "https://x", Kind: "carrier-pigeon"})
	require.ErrorIs(t, err, news.ErrUnknownKind)
}

func TestSetHonoursConfiguredTimeouts(t *testing.T) {
	t.Parallel()

	getter := &stubGetter{bodies: map[string]string{"https://example.kz/rss": rssFixture}}
	set := NewSet(getter, Config{FeedTimeout: time.Second})
	_, err := set.Fetch(context.Background(), news.Source{Name: "rss", URL: "https://example.kz/rss", Kind: news.KindFeed})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Second}, getter.timeouts)
}

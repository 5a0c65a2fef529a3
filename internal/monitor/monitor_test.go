package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/storage/memory"
	"github.com/JakeFAU/ulytau-insight/internal/telegram"
)

type recordingMessenger struct {
	mu   sync.Mutex
	msgs []telegram.Message
	at   []time.Time
	fail map[int64]bool
}

func (r *recordingMessenger) SendMessage(_ context.Context, msg telegram.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.at = append(r.at, time.Now())
	if r.fail[msg.ChatID] {
		return errors.New("blocked")
	}
	return nil
}

func (r *recordingMessenger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type stubProvider struct {
	mu    sync.Mutex
	items []news.Item
	err   error
	calls int
}

func (p *stubProvider) Latest(context.Context) ([]news.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.items, p.err
}

// items returns n items, newest first, as the pipeline orders them.
func items(n int) []news.Item {
	out := make([]news.Item, n)
	for i := range out {
		out[i] = news.Item{Title: fmt.Sprintf("item %d", i), Link: fmt.Sprintf("https://a/%d", i), Score: 2}
	}
	return out
}

func fastConfig() Config {
	return Config{SendInterval: time.Millisecond}
}

func subscribed(t *testing.T, ids ...int64) *memory.Store {
	t.Helper()
	store := memory.New(0)
	for _, id := range ids {
		_, err := store.AddSubscriber(context.Background(), id)
		require.NoError(t, err)
	}
	return store
}

func TestCheckSendsOldestFirstAndCaps(t *testing.T) {
	t.Parallel()

	store := subscribed(t, 1, 2)
	msgr := &recordingMessenger{}
	m := New(fastConfig(), &stubProvider{items: items(5)}, store, msgr, nil)

	sent, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPerCheck, sent)
	require.Len(t, msgr.msgs, 6)
	assert.Contains(t, msgr.msgs[0].Text, "item 4")
	assert.Equal(t, int64(1), msgr.msgs[0].ChatID)
	assert.Equal(t, int64(2), msgr.msgs[1].ChatID)
	assert.Contains(t, msgr.msgs[4].Text, "item 2")

	for _, link := range []string{"https://a/4", "https://a/3", "https://a/2"} {
		seen, err := store.IsSeen(context.Background(), link)
		require.NoError(t, err)
		assert.True(t, seen, link)
	}

	sent, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Contains(t, msgr.msgs[6].Text, "item 1")

	sent, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestCheckSkipsWithoutSubscribers(t *testing.T) {
	t.Parallel()

	store := memory.New(0)
	msgr := &recordingMessenger{}
	m := New(fastConfig(), &stubProvider{items: items(2)}, store, msgr, nil)

	sent, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, msgr.count())
	seen, err := store.IsSeen(context.Background(), "https://a/1")
	require.NoError(t, err)
	assert.False(t, seen, "nothing is marked while nobody listens")
}

func TestCheckSkipsEmptyLinksAndRespectsFetchLimit(t *testing.T) {
	t.Parallel()

	list := items(4)
	list[0].Link = ""
	store := subscribed(t, 1)
	msgr := &recordingMessenger{}
	cfg := fastConfig()
	cfg.FetchLimit = 2
	cfg.MaxPerCheck = 10
	m := New(cfg, &stubProvider{items: list}, store, msgr, nil)

	sent, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Contains(t, msgr.msgs[0].Text, "item 1")
}

func TestCheckContinuesPastFailedChat(t *testing.T) {
	t.Parallel()

	store := subscribed(t, 1, 2)
	msgr := &recordingMessenger{fail: map[int64]bool{1: true}}
	m := New(fastConfig(), &stubProvider{items: items(1)}, store, msgr, nil)

	sent, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 2, msgr.count())
}

func TestCheckProviderError(t *testing.T) {
	t.Parallel()

	m := New(fastConfig(), &stubProvider{err: errors.New("down")}, memory.New(0), &recordingMessenger{}, nil)
	_, err := m.Check(context.Background())
	require.ErrorContains(t, err, "down")
}

func TestCheckPacesSends(t *testing.T) {
	t.Parallel()

	store := subscribed(t, 1, 2, 3)
	msgr := &recordingMessenger{}
	m := New(Config{SendInterval: 30 * time.Millisecond}, &stubProvider{items: items(1)}, store, msgr, nil)

	_, err := m.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, msgr.at, 3)
	assert.GreaterOrEqual(t, msgr.at[2].Sub(msgr.at[0]), 50*time.Millisecond)
}

func TestStartRunsOnSchedule(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{items: items(1)}
	m := New(Config{FirstDelay: 5 * time.Millisecond, Interval: 10 * time.Millisecond, SendInterval: time.Millisecond},
		provider, subscribed(t, 1), &recordingMessenger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return provider.calls >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultFirstDelay, cfg.FirstDelay)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultFetchLimit, cfg.FetchLimit)
	assert.Equal(t, DefaultMaxPerCheck, cfg.MaxPerCheck)
	assert.Equal(t, DefaultSendInterval, cfg.SendInterval)
}

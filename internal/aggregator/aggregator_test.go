package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ulytau-insight/internal/breaker"
	"github.com/JakeFAU/ulytau-insight/internal/clock/fake"
	"github.com/JakeFAU/ulytau-insight/internal/news"
)

type stubRunner struct {
	runs    atomic.Int32
	gate    chan struct{}
	ctxErr  atomic.Value
	entries []news.RawEntry
}

func (s *stubRunner) Run(ctx context.Context, _ []news.Source) []news.RawEntry {
	s.runs.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if err := ctx.Err(); err != nil {
		s.ctxErr.Store(err)
	}
	return s.entries
}

func (s *stubRunner) Statuses() []news.SourceStatus {
	return []news.SourceStatus{{Name: "a", Outcome: news.OutcomeOK, OK: true}}
}

func (s *stubRunner) Breakers() map[string]breaker.Snapshot {
	return map[string]breaker.Snapshot{
		"a": {State: breaker.StateClosed},
		"b": {State: breaker.StateOpen},
		"c": {State: breaker.StateHalfOpen},
	}
}

type stubRanker struct {
	now time.Time
}

func (r *stubRanker) Aggregate(entries []news.RawEntry, now time.Time) []news.Item {
	r.now = now
	out := make([]news.Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, news.Item{Title: e.Title, Link: e.Link})
	}
	return out
}

var start = time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

func TestLatestRunsCycleWithClock(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{entries: []news.RawEntry{{Title: "t", Link: "l"}}}
	ranker := &stubRanker{}
	svc := New(runner, ranker, []news.Source{{Name: "a"}}, fake.New(start), nil)

	items, err := svc.Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, []news.Item{{Title: "t", Link: "l"}}, items)
	require.Equal(t, start, ranker.now)
}

func TestLatestCoalescesConcurrentCallers(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{gate: make(chan struct{}), entries: []news.RawEntry{{Title: "t", Link: "l"}}}
	svc := New(runner, &stubRanker{}, nil, fake.New(start), nil)

	var wg sync.WaitGroup
	results := make([][]news.Item, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := svc.Latest(context.Background())
			assert.NoError(t, err)
			results[i] = items
		}()
	}
	require.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(runner.gate)
	wg.Wait()

	require.Equal(t, int32(1), runner.runs.Load())
	for _, items := range results {
		require.Len(t, items, 1)
	}
	results[0][0].Title = "mutated"
	require.Equal(t, "t", results[1][0].Title)
}

func TestLatestCallerCancellationDoesNotCancelCycle(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{gate: make(chan struct{})}
	svc := New(runner, &stubRanker{}, nil, fake.New(start), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Latest(ctx)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(runner.gate)
	items, err := svc.Latest(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
	require.Nil(t, runner.ctxErr.Load())
}

func TestSourcesAndBreakers(t *testing.T) {
	t.Parallel()

	sources := []news.Source{{Name: "a", URL: "https://a"}}
	svc := New(&stubRunner{}, &stubRanker{}, sources, fake.New(start), nil)
	require.Len(t, svc.Sources(), 1)
	require.Equal(t, 2, svc.OpenBreakers())

	catalog := svc.Catalog()
	catalog[0].Name = "changed"
	require.Equal(t, "a", svc.Catalog()[0].Name)
}

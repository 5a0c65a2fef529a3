// Package orchestrator fans a fetch cycle out over every configured source.
//
// Each source is gated by its circuit breaker, fetched through the adapter
// set on a bounded pool, and folded back in configuration order. The cycle
// returns once every source has settled or the batch deadline passes,
// whichever comes first. Sources still running at the deadline are abandoned:
// their late results are discarded and their breakers are left untouched.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/ulytau-insight/internal/breaker"
	"github.com/JakeFAU/ulytau-insight/internal/metrics"
	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// Pool defaults.
const (
	DefaultConcurrency = 10
	DefaultDeadline    = 10 * time.Second
)

var errAbandoned = errors.New("abandoned at batch deadline")

// Config tunes a fetch cycle.
type Config struct {
	Concurrency int
	Deadline    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Deadline <= 0 {
		c.Deadline = DefaultDeadline
	}
	return c
}

// Orchestrator runs fetch cycles and keeps the latest status per source.
type Orchestrator struct {
	adapter  news.Adapter
	breakers *breaker.Registry
	clock    news.Clock
	ids      news.IDGenerator
	logger   *zap.Logger
	cfg      Config

	mu       sync.RWMutex
	gen      uint64
	order    []string
	statuses map[string]news.SourceStatus
}

// New wires an Orchestrator.
func New(
	adapter news.Adapter,
	breakers *breaker.Registry,
	clock news.Clock,
	ids news.IDGenerator,
	logger *zap.Logger,
	cfg Config,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		adapter:  adapter,
		breakers: breakers,
		clock:    clock,
		ids:      ids,
		logger:   logger.Named("orchestrator"),
		cfg:      cfg.withDefaults(),
		statuses: make(map[string]news.SourceStatus),
	}
}

// Run executes one cycle over sources and returns every entry gathered from
// the sources that completed in time, in source order. Source failures never
// surface as an error.
func (o *Orchestrator) Run(ctx context.Context, sources []news.Source) []news.RawEntry {
	started := time.Now()
	cycleID := o.cycleID()
	logger := o.logger.With(zap.String("cycle_id", cycleID))

	gen := o.resetOrder(sources)

	batchCtx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	col := newCollector(gen, len(sources))
	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(o.cfg.Concurrency)
		for i, src := range sources {
			g.Go(func() error {
				o.fetchOne(batchCtx, logger, col, i, src)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
	}

	results, pending := col.seal()
	for _, i := range pending {
		o.setStatus(gen, o.abandonedStatus(sources[i], time.Since(started)))
	}

	var out []news.RawEntry
	for _, entries := range results {
		out = append(out, entries...)
	}
	elapsed := time.Since(started)
	metrics.ObserveCycle(elapsed)
	logger.Info("fetch cycle finished",
		zap.Int("sources", len(sources)),
		zap.Int("abandoned", len(pending)),
		zap.Int("entries", len(out)),
		zap.Duration("elapsed", elapsed),
	)
	return out
}

func (o *Orchestrator) fetchOne(ctx context.Context, logger *zap.Logger, col *collector, i int, src news.Source) {
	started := time.Now()
	br := o.breakers.For(src.URL)
	logger = logger.With(zap.String("source", src.Name), zap.String("url", src.URL))

	if ctx.Err() != nil {
		// Pool slot freed only after the deadline; seal reports it.
		return
	}

	if !br.Allow() {
		if col.settle(ctx, i, nil) {
			o.record(col.gen, src, news.OutcomeBreakerOpen, 0, nil, br, time.Since(started))
			logger.Debug("source skipped, breaker open")
		}
		return
	}

	entries, err := o.adapter.Fetch(ctx, src)
	elapsed := time.Since(started)

	if err != nil {
		if !col.settle(ctx, i, nil) {
			br.Release()
			o.record(col.gen, src, news.OutcomeAbandoned, 0, errAbandoned, br, elapsed)
			return
		}
		br.RecordFailure()
		o.record(col.gen, src, news.OutcomeFailed, 0, err, br, elapsed)
		logger.Warn("source fetch failed", zap.Error(err), zap.String("circuit", string(br.State())))
		return
	}

	if !col.settle(ctx, i, entries) {
		br.Release()
		o.record(col.gen, src, news.OutcomeAbandoned, 0, errAbandoned, br, elapsed)
		logger.Debug("late source result discarded", zap.Int("entries", len(entries)))
		return
	}
	br.RecordSuccess()
	o.record(col.gen, src, news.OutcomeOK, len(entries), nil, br, elapsed)
	logger.Debug("source fetched", zap.Int("entries", len(entries)), zap.Duration("elapsed", elapsed))
}

func (o *Orchestrator) record(gen uint64, src news.Source, outcome news.Outcome, entries int, err error, br *breaker.Breaker, elapsed time.Duration) {
	state := br.State()
	status := news.SourceStatus{
		Name:      src.Name,
		URL:       src.URL,
		Kind:      src.Kind,
		OK:        outcome == news.OutcomeOK,
		Outcome:   outcome,
		Entries:   entries,
		ElapsedMS: elapsed.Milliseconds(),
		Circuit:   string(state),
		CheckedAt: o.clock.Now(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	o.setStatus(gen, status)
	metrics.ObserveSourceFetch(src.Name, string(src.Kind), string(outcome), entries, elapsed)
	metrics.SetBreakerState(src.Name, string(state))
}

func (o *Orchestrator) abandonedStatus(src news.Source, elapsed time.Duration) news.SourceStatus {
	return news.SourceStatus{
		Name:      src.Name,
		URL:       src.URL,
		Kind:      src.Kind,
		Outcome:   news.OutcomeAbandoned,
		Error:     errAbandoned.Error(),
		ElapsedMS: elapsed.Milliseconds(),
		Circuit:   string(o.breakers.For(src.URL).State()),
		CheckedAt: o.clock.Now(),
	}
}

// Statuses returns the latest status of every source in the last cycle, in
// source order. Sources that have not reported yet are omitted.
func (o *Orchestrator) Statuses() []news.SourceStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]news.SourceStatus, 0, len(o.order))
	for _, url := range o.order {
		if st, ok := o.statuses[url]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Breakers exposes per-source breaker snapshots keyed by URL.
func (o *Orchestrator) Breakers() map[string]breaker.Snapshot {
	return o.breakers.Snapshot()
}

// resetOrder starts a new cycle generation.
func (o *Orchestrator) resetOrder(sources []news.Source) uint64 {
	order := make([]string, 0, len(sources))
	for _, src := range sources {
		order = append(order, src.URL)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.order = order
	return o.gen
}

// setStatus drops records from stale cycles so a straggler cannot overwrite
// a newer status.
func (o *Orchestrator) setStatus(gen uint64, st news.SourceStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	o.statuses[st.URL] = st
}

func (o *Orchestrator) cycleID() string {
	if o.ids == nil {
		return ""
	}
	id, err := o.ids.NewID()
	if err != nil {
		o.logger.Warn("generate cycle id", zap.Error(err))
		return ""
	}
	return id
}

// Package aggregator runs a fetch cycle and the pipeline behind one call and
// coalesces concurrent callers onto a single in-flight cycle.
package aggregator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/ulytau-insight/internal/breaker"
	"github.com/JakeFAU/ulytau-insight/internal/news"
)

const cycleKey = "cycle"

// Runner executes fetch cycles and reports per-source state.
type Runner interface {
	Run(ctx context.Context, sources []news.Source) []news.RawEntry
	Statuses() []news.SourceStatus
	Breakers() map[string]breaker.Snapshot
}

// Ranker orders raw entries into items.
type Ranker interface {
	Aggregate(entries []news.RawEntry, now time.Time) []news.Item
}

// Service implements news.Provider.
type Service struct {
	runner  Runner
	ranker  Ranker
	sources []news.Source
	clock   news.Clock
	logger  *zap.Logger
	group   singleflight.Group
}

// New builds a Service over a fixed source list.
func New(runner Runner, ranker Ranker, sources []news.Source, clock news.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner:  runner,
		ranker:  ranker,
		sources: sources,
		clock:   clock,
		logger:  logger.Named("aggregator"),
	}
}

// Latest runs a cycle and returns the ranked items. Callers arriving while a
// cycle is running wait for it. A caller giving up does not cancel the cycle
// for the others.
func (s *Service) Latest(ctx context.Context) ([]news.Item, error) {
	ch := s.group.DoChan(cycleKey, func() (any, error) {
		entries := s.runner.Run(context.WithoutCancel(ctx), s.sources)
		return s.ranker.Aggregate(entries, s.clock.Now()), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight cycle")
		}
		items, _ := res.Val.([]news.Item)
		out := make([]news.Item, len(items))
		copy(out, items)
		return out, nil
	}
}

// Sources returns the latest per-source status records.
func (s *Service) Sources() []news.SourceStatus {
	return s.runner.Statuses()
}

// Catalog returns the configured sources.
func (s *Service) Catalog() []news.Source {
	out := make([]news.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// OpenBreakers counts sources whose breaker is not closed.
func (s *Service) OpenBreakers() int {
	n := 0
	for _, snap := range s.runner.Breakers() {
		if snap.State != breaker.StateClosed {
			n++
		}
	}
	return n
}

// Breakers returns breaker snapshots keyed by source URL.
func (s *Service) Breakers() map[string]breaker.Snapshot {
	return s.runner.Breakers()
}

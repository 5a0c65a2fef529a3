// Package pipeline turns the raw entries of one fetch cycle into the ranked
// item list: dedup, freshness, exclusion, relevance, scoring, projection and
// ordering, in that order.
package pipeline

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ulytau-insight/internal/classify"
	"github.com/JakeFAU/ulytau-insight/internal/dates"
	"github.com/JakeFAU/ulytau-insight/internal/metrics"
	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/textnorm"
)

// Defaults.
const (
	DefaultFreshnessWindow = 7 * 24 * time.Hour
	DefaultSummaryLimit    = 350
)

// Result labels reported to metrics.
const (
	resultKept       = "kept"
	resultNoLink     = "no_link"
	resultDuplicate  = "duplicate"
	resultStale      = "stale"
	resultExcluded   = "excluded"
	resultIrrelevant = "irrelevant"
)

// Config tunes the pipeline.
type Config struct {
	FreshnessWindow time.Duration
	SummaryLimit    int
}

// Pipeline is stateless between calls and safe for concurrent use.
type Pipeline struct {
	classifier *classify.Classifier
	cfg        Config
	logger     *zap.Logger
}

// New builds a pipeline around a classifier.
func New(classifier *classify.Classifier, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}
	if cfg.SummaryLimit <= 0 {
		cfg.SummaryLimit = DefaultSummaryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{classifier: classifier, cfg: cfg, logger: logger.Named("pipeline")}
}

type ranked struct {
	item      news.Item
	published time.Time
}

// Aggregate filters, scores and orders entries as of now. The result is never
// nil.
func (p *Pipeline) Aggregate(entries []news.RawEntry, now time.Time) []news.Item {
	counts := make(map[string]int)
	seen := make(map[string]struct{}, len(entries))
	cutoff := now.Add(-p.cfg.FreshnessWindow)
	kept := make([]ranked, 0, len(entries))

	for _, e := range entries {
		if e.Link == "" {
			counts[resultNoLink]++
			continue
		}
		if _, dup := seen[e.Link]; dup {
			counts[resultDuplicate]++
			continue
		}
		seen[e.Link] = struct{}{}

		published := dates.ParseOrEpoch(e.Published)
		if published.Before(cutoff) {
			counts[resultStale]++
			continue
		}

		normalize := textnorm.Clean
		if e.Plain {
			normalize = textnorm.Scrub
		}
		title := normalize(e.Title)
		summary := normalize(e.Summary)
		if summary == "" {
			summary = title
		}
		text := title + " " + summary
		relevant := p.classifier.Relevant(text)
		if p.classifier.Excluded(text) && !relevant {
			counts[resultExcluded]++
			continue
		}

		category := p.classifier.Category(text)
		if category != news.CategoryConstitution && !relevant {
			counts[resultIrrelevant]++
			continue
		}

		kept = append(kept, ranked{
			item: news.Item{
				Title:    title,
				Summary:  textnorm.Truncate(summary, p.cfg.SummaryLimit),
				Category: category,
				Source:   e.Source,
				Link:     e.Link,
				Score:    p.classifier.Score(title, summary, category, e.Published, now),
			},
			published: published,
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].item.Score != kept[j].item.Score {
			return kept[i].item.Score > kept[j].item.Score
		}
		return kept[i].published.After(kept[j].published)
	})

	items := make([]news.Item, len(kept))
	for i, r := range kept {
		items[i] = r.item
	}

	counts[resultKept] = len(items)
	for result, n := range counts {
		metrics.ObservePipeline(result, n)
	}
	p.logger.Debug("aggregated",
		zap.Int("input", len(entries)),
		zap.Int("kept", len(items)),
		zap.Int("stale", counts[resultStale]),
		zap.Int("irrelevant", counts[resultIrrelevant]),
	)
	return items
}

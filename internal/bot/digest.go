package bot

import (
	"sort"
	"time"

	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/telegram"
)

// Digest limits.
const (
	digestSectionSize = 5
	digestFallback    = 3
	digestTopScore    = 4
)

// BuildDigest picks the week's highlights: legal items and high-scoring news,
// or the top few items when neither section has anything.
func BuildDigest(items []news.Item, now time.Time) telegram.Digest {
	sorted := make([]news.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	d := telegram.Digest{From: now.AddDate(0, 0, -7), To: now}
	for _, item := range sorted {
		switch item.Category {
		case news.CategoryLaw, news.CategoryConstitution:
			if len(d.Laws) < digestSectionSize {
				d.Laws = append(d.Laws, item)
			}
		default:
			if item.Score >= digestTopScore && len(d.TopEvents) < digestSectionSize {
				d.TopEvents = append(d.TopEvents, item)
			}
		}
	}
	if len(d.TopEvents) == 0 && len(d.Laws) == 0 {
		d.TopEvents = sorted[:min(digestFallback, len(sorted))]
	}
	return d
}

// Package classify decides region relevance, exclusion and legal category of
// an item and assigns its 1-5 importance score.
package classify

import (
	"strings"
	"time"

	"github.com/JakeFAU/ulytau-insight/internal/dates"
	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// Keywords are the configured keyword lists. Matching is case-insensitive.
type Keywords struct {
	Region       []string `yaml:"region"`
	Exclude      []string `yaml:"exclude"`
	Law          []string `yaml:"law"`
	Constitution []string `yaml:"constitution"`
}

// Classifier runs substring tests against lower-cased text.
type Classifier struct {
	region       []string
	exclude      []string
	law          []string
	constitution []string
	freshWindow  time.Duration
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithFreshWindow sets how recent an item must be to earn the freshness bonus.
func WithFreshWindow(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.freshWindow = d
		}
	}
}

// New lower-cases the keyword lists once.
func New(kw Keywords, opts ...Option) *Classifier {
	c := &Classifier{
		region:       lowerAll(kw.Region),
		exclude:      lowerAll(kw.Exclude),
		law:          lowerAll(kw.Law),
		constitution: lowerAll(kw.Constitution),
		freshWindow:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Relevant reports whether text mentions the region.
func (c *Classifier) Relevant(text string) bool {
	return containsAny(strings.ToLower(text), c.region)
}

// Excluded reports whether text mentions a competing locale.
func (c *Classifier) Excluded(text string) bool {
	return containsAny(strings.ToLower(text), c.exclude)
}

// Category returns constitution, law or news. Constitution wins over law.
func (c *Classifier) Category(text string) news.Category {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, c.constitution):
		return news.CategoryConstitution
	case containsAny(lower, c.law):
		return news.CategoryLaw
	default:
		return news.CategoryNews
	}
}

// RegionMentions sums the occurrences of every region keyword in text.
func (c *Classifier) RegionMentions(text string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, kw := range c.region {
		total += strings.Count(lower, kw)
	}
	return total
}

// Score rates an item from 1 to 5.
func (c *Classifier) Score(title, summary string, category news.Category, published string, now time.Time) int {
	if category == news.CategoryConstitution {
		return 5
	}
	score := 1
	if containsAny(strings.ToLower(title), c.region) {
		score += 2
	}
	if category == news.CategoryLaw {
		score += 2
	}
	if c.RegionMentions(title+" "+summary) > 3 {
		score++
	}
	if at, ok := dates.Parse(published); ok && now.Sub(at) < c.freshWindow {
		score++
	}
	return min(score, 5)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

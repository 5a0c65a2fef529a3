package orchestrator

import (
	"context"
	"sync"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// collector holds one result slot per source. Once sealed it accepts nothing.
type collector struct {
	gen uint64

	mu      sync.Mutex
	sealed  bool
	settled []bool
	entries [][]news.RawEntry
}

func newCollector(gen uint64, n int) *collector {
	return &collector{
		gen:     gen,
		settled: make([]bool, n),
		entries: make([][]news.RawEntry, n),
	}
}

// settle claims slot i. It fails once the collector is sealed or the batch
// context is done, in which case the caller's result must be discarded.
func (c *collector) settle(ctx context.Context, i int, entries []news.RawEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed || ctx.Err() != nil || c.settled[i] {
		return false
	}
	c.settled[i] = true
	c.entries[i] = entries
	return true
}

// seal stops further settlement and returns the results plus the indexes of
// slots that never settled.
func (c *collector) seal() ([][]news.RawEntry, []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	var pending []int
	for i, ok := range c.settled {
		if !ok {
			pending = append(pending, i)
		}
	}
	return c.entries, pending
}

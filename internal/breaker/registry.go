package breaker

import (
	"sync"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// Registry owns one breaker per source key.
type Registry struct {
	cfg   Config
	clock news.Clock

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry builds a registry and creates breakers for keys up front.
func NewRegistry(cfg Config, clock news.Clock, keys ...string) *Registry {
	r := &Registry{
		cfg:      cfg,
		clock:    clock,
		breakers: make(map[string]*Breaker, len(keys)),
	}
	for _, key := range keys {
		r.breakers[key] = New(cfg, clock)
	}
	return r
}

// For returns the breaker for key, creating it on first use.
func (r *Registry) For(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = New(r.cfg, r.clock)
		r.breakers[key] = b
	}
	return b
}

// Snapshot copies every breaker's state keyed by source.
func (r *Registry) Snapshot() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Snapshot, len(r.breakers))
	for key, b := range r.breakers {
		out[key] = b.Snapshot()
	}
	return out
}

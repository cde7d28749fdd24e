package insight

import (
	"sync"
	"time"

	"github.com/hyperengineering/finsight/internal/rules"
	"github.com/hyperengineering/finsight/internal/types"
)

// DefaultCacheTTL is how long a fetched feed is served without touching
// the data accessors again.
const DefaultCacheTTL = 30 * time.Second

// entry is one cached evaluation pass for a scope.
type entry struct {
	snapshot  rules.Snapshot
	alerts    []types.Insight
	fetchedAt time.Time
}

// Cache holds evaluated feeds per scope for a rolling TTL window.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*entry
}

// NewCache creates a Cache. A non-positive ttl uses DefaultCacheTTL and a
// nil now uses time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]*entry),
	}
}

// get returns a copy of the fresh entry for scope.
func (c *Cache) get(scope types.Scope) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[scope.String()]
	if !ok {
		return entry{}, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		delete(c.entries, scope.String())
		return entry{}, false
	}
	return entry{
		snapshot:  e.snapshot,
		alerts:    cloneInsights(e.alerts),
		fetchedAt: e.fetchedAt,
	}, true
}

func (c *Cache) put(scope types.Scope, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.fetchedAt = c.now()
	e.alerts = cloneInsights(e.alerts)
	c.entries[scope.String()] = &e
}

// update applies fn to the cached alerts of scope, if any are cached.
func (c *Cache) update(scope types.Scope, fn func([]types.Insight) []types.Insight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[scope.String()]; ok {
		e.alerts = fn(e.alerts)
	}
}

// Invalidate drops the cached entry of scope.
func (c *Cache) Invalidate(scope types.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scope.String())
}

func cloneInsights(in []types.Insight) []types.Insight {
	if in == nil {
		return nil
	}
	out := make([]types.Insight, len(in))
	copy(out, in)
	return out
}

// Package cache provides a small, instrumented LRU memoizer for the
// (ancestor, descendant) -> bool ancestry relation the block importer
// repeatedly queries while importing blocks.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-grandpa/finality-import/primitives"
)

var (
	hitCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grandpa_descendant_cache_hit_total",
		Help: "Total number of is_descendant_of queries served from cache.",
	})
	missCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grandpa_descendant_cache_miss_total",
		Help: "Total number of is_descendant_of queries that missed the cache.",
	})
)

type descendantKey struct {
	ancestor   primitives.Hash
	descendant primitives.Hash
}

// DescendantCache memoizes ancestry results. Entries are keyed only by the
// (ancestor, descendant) pair, so every closure wrapped by the same cache
// sees the answers recorded through the others; the importer wraps each
// import's ancestry closure with the one cache from its Config.
type DescendantCache struct {
	mu    sync.Mutex
	inner *lru.Cache[descendantKey, bool]
}

// New builds a cache holding up to size entries. size <= 0 defaults to 1024,
// generous for a single import's ancestry lookups without growing unbounded
// across a long-running sync.
func New(size int) *DescendantCache {
	if size <= 0 {
		size = 1024
	}
	inner, _ := lru.New[descendantKey, bool](size)
	return &DescendantCache{inner: inner}
}

// Get returns the cached result for (ancestor, descendant), if present.
func (c *DescendantCache) Get(ancestor, descendant primitives.Hash) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.inner.Get(descendantKey{ancestor, descendant})
	if ok {
		hitCount.Inc()
	} else {
		missCount.Inc()
	}
	return val, ok
}

// Put records the result of an is_descendant_of(ancestor, descendant) query.
func (c *DescendantCache) Put(ancestor, descendant primitives.Hash, result bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(descendantKey{ancestor, descendant}, result)
}

// Wrap returns an IsDescendantOf closure that consults the cache before
// delegating to next, caching next's result on miss. Errors from next are
// never cached.
func (c *DescendantCache) Wrap(next func(ancestor, descendant primitives.Hash) (bool, error)) func(primitives.Hash, primitives.Hash) (bool, error) {
	return func(ancestor, descendant primitives.Hash) (bool, error) {
		if val, ok := c.Get(ancestor, descendant); ok {
			return val, nil
		}
		result, err := next(ancestor, descendant)
		if err != nil {
			return false, err
		}
		c.Put(ancestor, descendant, result)
		return result, nil
	}
}

// Package decisioncache provides an LRU cache of decisions keyed by the
// content hash of the submission.
package decisioncache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/quellen/codegate/internal/gate/domain"
	"github.com/quellen/codegate/internal/gate/services/evaluator"
)

// cache is an LRU-backed implementation of evaluator.DecisionCache.
// It tracks basic metrics: hits, misses, and evictions.
type cache struct {
	lru       *lru.Cache[string, domain.Decision]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct{}

// New creates a new DecisionCache with the given capacity. If size <= 0, a
// disabled no-op cache is returned that always misses and tracks no metrics.
func New(size int) (evaluator.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var c cache
	// Use NewWithEvict to observe evictions, including Purge-induced ones.
	backing, err := lru.NewWithEvict(size, func(_ string, _ domain.Decision) {
		atomic.AddUint64(&c.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	c.lru = backing
	return &c, nil
}

// Get looks up a decision by key. When found, increments hits; otherwise increments misses.
func (c *cache) Get(key string) (domain.Decision, bool) {
	if val, ok := c.lru.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	var zero domain.Decision
	return zero, false
}

// Put stores a decision by key.
func (c *cache) Put(key string, d domain.Decision) {
	c.lru.Add(key, d)
}

// Len returns the number of entries in the cache.
func (c *cache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *cache) Purge() { c.lru.Purge() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *cache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

// disabledCache implementation

func (d *disabledCache) Get(string) (domain.Decision, bool) {
	var zero domain.Decision
	return zero, false
}

func (d *disabledCache) Put(string, domain.Decision) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ evaluator.DecisionCache = (*cache)(nil)
var _ evaluator.DecisionCache = (*disabledCache)(nil)

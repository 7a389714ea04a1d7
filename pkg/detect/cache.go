package detect

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

// ResultCache holds completed column results, keyed by stage, column
// identity, and the content hash of the analyzed samples. Each engine owns
// its own instance; there is no package-level cache.
type ResultCache struct {
	entries sync.Map // string -> models.ColumnPIIInfo
	metrics *Metrics
}

// NewResultCache creates an empty cache. The metrics argument may be nil.
func NewResultCache(metrics *Metrics) *ResultCache {
	return &ResultCache{metrics: metrics}
}

// CacheKey builds the cache key for a column evaluation. Sample content is
// folded in as an FNV-64a hash so identical sample sets hit the same entry
// and changed data misses.
func CacheKey(stage, connectionID, dbType, tableName, columnName string, samples []string) string {
	h := fnv.New64a()
	for _, s := range samples {
		h.Write([]byte(s))
		h.Write([]byte{0x1f})
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%x", stage, connectionID, dbType, tableName, columnName, h.Sum64())
}

// WithCache returns the cached result for key, or runs compute, stores its
// result, and returns it. Errors are never cached. Stored and returned
// values are clones, so no caller can mutate a cache entry.
func (c *ResultCache) WithCache(key string, compute func() (models.ColumnPIIInfo, error)) (models.ColumnPIIInfo, error) {
	if cached, ok := c.entries.Load(key); ok {
		c.metrics.recordCacheHit()
		info := cached.(models.ColumnPIIInfo)
		return info.Clone(), nil
	}
	c.metrics.recordCacheMiss()

	info, err := compute()
	if err != nil {
		return info, err
	}
	stored := info.Clone()
	c.entries.Store(key, stored)
	return info, nil
}

// Clear drops every entry. Called when the confidence threshold or the
// active stage set changes, since either invalidates all prior results.
func (c *ResultCache) Clear() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
}

// Len reports the number of cached entries.
func (c *ResultCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

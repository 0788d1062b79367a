package catalog

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/okian/bookpickr/pkg/metrics"
)

// cache is an unbounded, process-lifetime map keyed by exact strings.
// Concurrent misses for one key share a single fill.
type cache[V any] struct {
	name  string
	mu    sync.Mutex
	items map[string]V
	fill  singleflight.Group
}

func newCache[V any](name string) *cache[V] {
	return &cache[V]{name: name, items: make(map[string]V)}
}

func (c *cache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	v, ok := c.items[key]
	c.mu.Unlock()
	if ok {
		metrics.RecordCacheHit(c.name)
	} else {
		metrics.RecordCacheMiss(c.name)
	}
	return v, ok
}

func (c *cache[V]) set(key string, v V) {
	c.mu.Lock()
	c.items[key] = v
	c.mu.Unlock()
}

// load returns the cached value for key or runs fn once for all concurrent
// callers. fn's value is stored only when it reports keep.
func (c *cache[V]) load(key string, fn func() (v V, keep bool)) V {
	if v, ok := c.get(key); ok {
		return v
	}
	res, _, _ := c.fill.Do(key, func() (interface{}, error) {
		c.mu.Lock()
		v, ok := c.items[key]
		c.mu.Unlock()
		if ok {
			return v, nil
		}
		v, keep := fn()
		if keep {
			c.set(key, v)
		}
		return v, nil
	})
	return res.(V)
}

func (c *cache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

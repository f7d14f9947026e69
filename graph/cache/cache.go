// Package cache memoizes compiled workflow graphs.
//
// Assembling a Definition and binding it to a checkpoint backend is cheap
// enough to redo on a miss but expensive enough to amortize across requests.
// The cache is keyed by everything that makes two compiled graphs
// interchangeable: the configuration variant, the checkpoint backend, and a
// context token separating execution contexts that must not share resources.
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/advisorhq/stateflow/graph"
)

// Key identifies one compiled graph variant.
//
// Two requests sharing all three components may share the cached engine; a
// difference in any component means a separate instance. In particular,
// callers running engines on mutually incompatible execution contexts (e.g.
// separate event loops embedding this library) must use distinct Context
// tokens so non-thread-safe resources are never shared across them.
type Key struct {
	// Config names the configuration variant (e.g. a policy level).
	Config string

	// Backend names the checkpoint backend the engine is bound to
	// ("memory", "sqlite", ...). An engine bound to one backend must never
	// be reused for a thread living in another.
	Backend string

	// Context is the execution-context token.
	Context string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Config, k.Backend, k.Context)
}

// BuildFunc assembles and compiles the graph variant for a key on a cache
// miss.
type BuildFunc func() (*graph.Engine, error)

// Cache is a bounded, least-recently-used cache of compiled engines.
//
// Safe for concurrent use. Concurrent misses for the same key may race to
// build; one winner is stored and returned to everyone, and the losing builds
// are discarded; compiled engines hold no resources that need explicit
// teardown.
//
// Lifecycle: create one Cache at process start, inject it where engines are
// requested, and drop it at shutdown. Keeping it explicit (rather than a
// package-level memo) is what makes the sharing rules testable.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[Key, *graph.Engine]
	metrics *cacheMetrics
}

type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

// New creates a cache bounded to size entries, evicting least-recently-used
// variants when full. Size must be positive.
func New(size int) (*Cache, error) {
	return NewWithRegistry(size, nil)
}

// NewWithRegistry is New with cache metrics registered on the given
// Prometheus registry. A nil registry disables metrics.
func NewWithRegistry(size int, registry prometheus.Registerer) (*Cache, error) {
	var metrics *cacheMetrics
	if registry != nil {
		factory := promauto.With(registry)
		metrics = &cacheMetrics{
			hits: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "stateflow", Subsystem: "graph_cache", Name: "hits_total",
				Help: "Compiled-graph cache hits",
			}),
			misses: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "stateflow", Subsystem: "graph_cache", Name: "misses_total",
				Help: "Compiled-graph cache misses",
			}),
			evictions: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "stateflow", Subsystem: "graph_cache", Name: "evictions_total",
				Help: "Compiled-graph cache evictions",
			}),
		}
	}

	c := &Cache{metrics: metrics}
	entries, err := lru.NewWithEvict[Key, *graph.Engine](size, func(Key, *graph.Engine) {
		if metrics != nil {
			metrics.evictions.Inc()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cache size %d: %w", size, err)
	}
	c.entries = entries
	return c, nil
}

// GetOrCompile returns the cached engine for key, building it with build on
// a miss.
//
// The same key always yields the same instance (by identity) until it is
// evicted; different keys never share an instance. A build error is returned
// to the caller and nothing is cached, so a transient failure (an unreachable
// checkpoint backend, say) does not poison the key.
func (c *Cache) GetOrCompile(key Key, build BuildFunc) (*graph.Engine, error) {
	c.mu.Lock()
	if eng, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.hits.Inc()
		}
		return eng, nil
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.misses.Inc()
	}

	// Build outside the lock: compiles may dial a checkpoint backend and
	// must not serialize unrelated keys behind that.
	eng, err := build()
	if err != nil {
		return nil, err
	}
	if eng == nil {
		return nil, fmt.Errorf("cache build for %s returned nil engine", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent build may have won; keep the stored instance so every
	// caller shares one engine per key.
	if existing, ok := c.entries.Get(key); ok {
		return existing, nil
	}
	c.entries.Add(key, eng)
	return eng, nil
}

// Invalidate removes one key from the cache. The next GetOrCompile rebuilds.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	c.entries.Remove(key)
	c.mu.Unlock()
}

// Len returns the current number of cached engines.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

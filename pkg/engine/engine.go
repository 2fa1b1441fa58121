// Package engine provides the process-wide Engine context: an explicitly
// constructed and passed bundle of the table registry and the statistics
// cache that the orchestrator depends on. There is no package-level
// singleton; callers own an *Engine and thread it through explicitly.
package engine

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/stats/histogram"
	"clustercore/pkg/storage"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// HistogramBuilder computes a fresh histogram for one table column,
// invoked on a statistics cache miss.
type HistogramBuilder interface {
	Build(ctx context.Context, table *storage.Table, column string) (*histogram.Histogram, error)
}

// Engine bundles a table registry with a per-column statistics cache.
// Both are guarded independently; an Engine has no lock of its own.
type Engine struct {
	tables *tableRegistry
	stats  *statisticsCache
}

// New constructs an empty Engine. builder supplies the statistics cache's
// fill function; it may be nil if the caller only uses the table registry.
func New(builder HistogramBuilder) *Engine {
	return &Engine{
		tables: newTableRegistry(),
		stats:  newStatisticsCache(builder),
	}
}

// RegisterTable adds or replaces the table under name.
func (e *Engine) RegisterTable(name string, table *storage.Table) {
	e.tables.put(name, table)
	e.stats.invalidateTable(name)
}

// Table looks up a registered table by name.
func (e *Engine) Table(name string) (*storage.Table, error) {
	return e.tables.get(name)
}

// HasTable reports whether a table is registered under name.
func (e *Engine) HasTable(name string) bool {
	_, err := e.tables.get(name)
	return err == nil
}

// DropTable removes a table from the registry and evicts its cached
// statistics.
func (e *Engine) DropTable(name string) {
	e.tables.remove(name)
	e.stats.invalidateTable(name)
}

// Histogram satisfies orchestrator.HistogramSource: it returns the cached
// histogram for tableName/column, building and caching it on a miss.
// Concurrent callers requesting the same table/column share one build via
// singleflight rather than each triggering a redundant scan.
func (e *Engine) Histogram(ctx context.Context, tableName, column string) (*histogram.Histogram, error) {
	table, err := e.tables.get(tableName)
	if err != nil {
		return nil, err
	}
	return e.stats.get(ctx, table, tableName, column)
}

// InvalidateHistogram evicts one column's cached histogram, forcing the
// next Histogram call to rebuild it. Callers invoke this after a
// maintenance run has materially changed a column's value distribution.
func (e *Engine) InvalidateHistogram(tableName, column string) {
	e.stats.invalidate(tableName, column)
}

type tableRegistry struct {
	mu     sync.RWMutex
	tables map[string]*storage.Table
}

func newTableRegistry() *tableRegistry {
	return &tableRegistry{tables: make(map[string]*storage.Table)}
}

func (r *tableRegistry) put(name string, table *storage.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = table
}

func (r *tableRegistry) get(name string) (*storage.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.tables[name]
	if !ok {
		return nil, dberr.New(dberr.CategoryPrecondition, "ENGINE_TABLE_NOT_FOUND", fmt.Sprintf("table %q is not registered", name))
	}
	return table, nil
}

func (r *tableRegistry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, name)
}

// statisticsCache holds one histogram per table/column key, filled lazily
// through builder and coalesced under concurrent misses via singleflight.
type statisticsCache struct {
	builder HistogramBuilder

	mu      sync.RWMutex
	entries map[string]*histogram.Histogram

	group singleflight.Group
}

func newStatisticsCache(builder HistogramBuilder) *statisticsCache {
	return &statisticsCache{
		builder: builder,
		entries: make(map[string]*histogram.Histogram),
	}
}

func cacheKey(tableName, column string) string {
	return tableName + "\x00" + column
}

func (c *statisticsCache) get(ctx context.Context, table *storage.Table, tableName, column string) (*histogram.Histogram, error) {
	key := cacheKey(tableName, column)

	c.mu.RLock()
	h, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	if c.builder == nil {
		return nil, dberr.New(dberr.CategoryPrecondition, "ENGINE_NO_HISTOGRAM_BUILDER", "no histogram builder configured for this engine")
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		built, buildErr := c.builder.Build(ctx, table, column)
		if buildErr != nil {
			return nil, buildErr
		}
		c.mu.Lock()
		c.entries[key] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*histogram.Histogram), nil
}

func (c *statisticsCache) invalidate(tableName, column string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(tableName, column))
}

func (c *statisticsCache) invalidateTable(tableName string) {
	prefix := tableName + "\x00"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}

// Package cache persists aggregated metrics and snapshots so repeated analyses
// skip recomputation. Entries are addressed by (category, key). A cache
// failure is never an error for the caller: it is logged and read as a miss.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/storage"
)

// Categories.
const (
	CategorySnapshots = "snapshots"
	CategoryMetrics   = "metrics"
)

// SnapshotKey is the key of the snapshot for a (base, current) month pair.
func SnapshotKey(baseMonth, currentMonth int) string {
	return fmt.Sprintf("snapshot_%d_%d", baseMonth, currentMonth)
}

// MetricsKey is the key of the trailing-window aggregate ending at month.
func MetricsKey(month int) string {
	return fmt.Sprintf("ttm_%d", month)
}

// Options configures a Cache.
type Options struct {
	Store   storage.BlobStore
	Enabled bool
	Logger  *log.Logger // nil = log.Default()
}

// Cache reads and writes encoded entries through a BlobStore.
type Cache struct {
	store   storage.BlobStore
	enabled bool
	logger  *log.Logger
}

// New creates a Cache. A nil store disables caching.
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		store:   opts.Store,
		enabled: opts.Enabled && opts.Store != nil,
		logger:  logger,
	}
}

// Disabled returns a cache on which every Load misses and every Save is a no-op.
func Disabled() *Cache {
	return New(Options{})
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// Save encodes v and stores it under (category, key). v must be CBOR-encodable.
// Failures are logged.
func (c *Cache) Save(ctx context.Context, category, key string, v any) {
	if !c.Enabled() {
		return
	}

	blob, err := encode(category, key, v)
	if err == nil {
		err = c.store.Put(ctx, category, key, blob)
	}
	observability.RecordCacheWrite(category, err)
	if err != nil {
		c.logger.Printf("[cache] %v", &domain.CacheError{Op: "save", Category: category, Key: key, Err: err})
		return
	}
	c.logger.Printf("[cache] saved %s/%s (%d bytes)", category, key, len(blob))
}

// Load decodes the entry at (category, key) into v. It reports false on a miss,
// when disabled, and on any read or decode failure.
func (c *Cache) Load(ctx context.Context, category, key string, v any) bool {
	if !c.Enabled() {
		observability.RecordCacheLookup(category, observability.CacheDisabled)
		return false
	}

	blob, err := c.store.Get(ctx, category, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			observability.RecordCacheLookup(category, observability.CacheMiss)
			return false
		}
		c.fail("load", category, key, err)
		return false
	}

	if err := decode(category, key, blob, v); err != nil {
		c.fail("load", category, key, err)
		return false
	}

	observability.RecordCacheLookup(category, observability.CacheHit)
	c.logger.Printf("[cache] hit %s/%s", category, key)
	return true
}

// Clear evicts a category, or everything when category is empty.
func (c *Cache) Clear(ctx context.Context, category string) error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := c.store.Clear(ctx, category); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// SaveMetrics stores an aggregate under metrics/ttm_{target month}.
func (c *Cache) SaveMetrics(ctx context.Context, a *domain.AggregatedMetrics) {
	c.Save(ctx, CategoryMetrics, MetricsKey(a.TargetMonth), toMetricsRecord(a))
}

// LoadMetrics returns the cached aggregate for month. An entry computed with a
// different window length is stale and reported as a miss.
func (c *Cache) LoadMetrics(ctx context.Context, month, windowMonths int) (*domain.AggregatedMetrics, bool) {
	key := MetricsKey(month)

	var rec metricsRecord
	if !c.Load(ctx, CategoryMetrics, key, &rec) {
		return nil, false
	}
	if rec.TargetMonth != month || rec.WindowMonths != windowMonths {
		c.logger.Printf("[cache] stale %s/%s: window %d, want %d", CategoryMetrics, key, rec.WindowMonths, windowMonths)
		return nil, false
	}

	a, err := rec.toDomain()
	if err != nil {
		c.fail("load", CategoryMetrics, key, err)
		return nil, false
	}
	return a, true
}

// SaveSnapshot stores a snapshot under snapshots/snapshot_{base}_{current}.
func (c *Cache) SaveSnapshot(ctx context.Context, s *domain.Snapshot) {
	c.Save(ctx, CategorySnapshots, SnapshotKey(s.BaseMonth, s.CurrentMonth), toSnapshotRecord(s))
}

// LoadSnapshot returns the cached snapshot for a month pair built with the
// given window length.
func (c *Cache) LoadSnapshot(ctx context.Context, baseMonth, currentMonth, windowMonths int) (*domain.Snapshot, bool) {
	key := SnapshotKey(baseMonth, currentMonth)

	var rec snapshotRecord
	if !c.Load(ctx, CategorySnapshots, key, &rec) {
		return nil, false
	}
	if rec.WindowMonths != windowMonths {
		c.logger.Printf("[cache] stale %s/%s: window %d, want %d", CategorySnapshots, key, rec.WindowMonths, windowMonths)
		return nil, false
	}

	s, err := rec.toDomain()
	if err != nil {
		c.fail("load", CategorySnapshots, key, err)
		return nil, false
	}
	return s, true
}

func (c *Cache) fail(op, category, key string, err error) {
	observability.RecordCacheLookup(category, observability.CacheError)
	c.logger.Printf("[cache] %v", &domain.CacheError{Op: op, Category: category, Key: key, Err: err})
}

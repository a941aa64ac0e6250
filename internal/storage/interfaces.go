package storage

import (
	"context"

	"segment-flow-lab/internal/table"
)

// BlobStore persists opaque cache blobs addressed by (category, key).
// Writes to the same (category, key) are serialized; a reader never observes a
// partially written blob.
type BlobStore interface {
	// Get returns the blob. Returns ErrNotFound if the entry does not exist.
	Get(ctx context.Context, category, key string) ([]byte, error)

	// Put stores or replaces the blob.
	Put(ctx context.Context, category, key string, data []byte) error

	// Clear removes every entry in category. An empty category clears everything.
	Clear(ctx context.Context, category string) error
}

// SegmentSource loads segment assignment tables. Column names follow the
// configured segment column mapping.
type SegmentSource interface {
	// LoadBase returns the base-period assignments.
	LoadBase(ctx context.Context) (table.Table, error)

	// LoadCurrent returns the assignments for a current month.
	// Returns *domain.NotFoundError if no data exists for that month.
	LoadCurrent(ctx context.Context, month int) (table.Table, error)

	// CurrentMonths lists the months with current-period data, ascending.
	CurrentMonths(ctx context.Context) ([]int, error)
}

// MetricsSource loads the long entity x month metrics table. Column names
// follow the configured metrics column mapping; all other columns are metrics.
type MetricsSource interface {
	LoadMetrics(ctx context.Context) (table.Table, error)
}

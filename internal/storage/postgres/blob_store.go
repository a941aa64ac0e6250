package postgres

import (
	"context"
	"time"

	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/storage"
)

// BlobStore implements storage.BlobStore on the analytics_cache table.
// Concurrent writers to one (category, key) are serialized by the row lock
// taken by the upsert.
type BlobStore struct {
	pool *Pool
}

// NewBlobStore creates a new BlobStore.
func NewBlobStore(pool *Pool) *BlobStore {
	return &BlobStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BlobStore = (*BlobStore)(nil)

// Get retrieves a blob. Returns ErrNotFound if not exists.
func (s *BlobStore) Get(ctx context.Context, category, key string) ([]byte, error) {
	if err := storage.ValidateAddress(category, key); err != nil {
		return nil, err
	}

	start := time.Now()
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM analytics_cache WHERE category = $1 AND cache_key = $2`,
		category, key,
	).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			observability.RecordDBQuery("postgres", "cache_get", time.Since(start).Seconds(), nil)
			return nil, storage.ErrNotFound
		}
		observability.RecordDBQuery("postgres", "cache_get", time.Since(start).Seconds(), err)
		return nil, wrapQueryError("get cache blob", err)
	}
	observability.RecordDBQuery("postgres", "cache_get", time.Since(start).Seconds(), nil)
	return payload, nil
}

// Put inserts or replaces a blob.
func (s *BlobStore) Put(ctx context.Context, category, key string, data []byte) error {
	if err := storage.ValidateAddress(category, key); err != nil {
		return err
	}

	query := `
		INSERT INTO analytics_cache (category, cache_key, payload, size_bytes, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (category, cache_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			size_bytes = EXCLUDED.size_bytes,
			updated_at = EXCLUDED.updated_at
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query, category, key, data, len(data))
	observability.RecordDBQuery("postgres", "cache_put", time.Since(start).Seconds(), err)
	if err != nil {
		return wrapQueryError("put cache blob", err)
	}
	return nil
}

// Clear deletes a category, or every entry when category is empty.
func (s *BlobStore) Clear(ctx context.Context, category string) error {
	var err error
	if category == "" {
		_, err = s.pool.Exec(ctx, `DELETE FROM analytics_cache`)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM analytics_cache WHERE category = $1`, category)
	}
	if err != nil {
		return wrapQueryError("clear cache", err)
	}
	return nil
}

// Package sqlite provides a single-file cache backend on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"segment-flow-lab/internal/storage"
	"segment-flow-lab/internal/storage/migrations"
)

// BlobStore implements storage.BlobStore on the analytics_cache table.
type BlobStore struct {
	db *sql.DB
}

// Open opens (creating if needed) and migrates a SQLite cache database.
func Open(ctx context.Context, path string) (*BlobStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps concurrent upserts of the same key serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &BlobStore{db: db}, nil
}

// Close releases the underlying connection.
func (s *BlobStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get retrieves a blob. Returns ErrNotFound if not exists.
func (s *BlobStore) Get(ctx context.Context, category, key string) ([]byte, error) {
	if err := storage.ValidateAddress(category, key); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM analytics_cache WHERE category = ? AND cache_key = ?`,
		category, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cache blob: %w", err)
	}
	return payload, nil
}

// Put upserts a blob.
func (s *BlobStore) Put(ctx context.Context, category, key string, data []byte) error {
	if err := storage.ValidateAddress(category, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics_cache (category, cache_key, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(category, cache_key) DO UPDATE SET
		    payload = excluded.payload,
		    updated_at = excluded.updated_at`,
		category, key, data, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cache blob: %w", err)
	}
	return nil
}

// Clear deletes a category, or every entry when category is empty.
func (s *BlobStore) Clear(ctx context.Context, category string) error {
	var err error
	if category == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM analytics_cache`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM analytics_cache WHERE category = ?`, category)
	}
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

var _ storage.BlobStore = (*BlobStore)(nil)

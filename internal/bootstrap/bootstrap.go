// Package bootstrap opens the input sources and cache backend named by the
// settings and hands them to the orchestrator.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"segment-flow-lab/internal/cache"
	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/orchestrator"
	"segment-flow-lab/internal/storage"
	chstore "segment-flow-lab/internal/storage/clickhouse"
	"segment-flow-lab/internal/storage/csvdir"
	"segment-flow-lab/internal/storage/filesystem"
	"segment-flow-lab/internal/storage/memory"
	"segment-flow-lab/internal/storage/migrations"
	pgstore "segment-flow-lab/internal/storage/postgres"
	"segment-flow-lab/internal/storage/sqlite"
)

// Env holds opened collaborators. Close releases every connection.
type Env struct {
	Settings config.Settings
	Segments storage.SegmentSource
	Metrics  storage.MetricsSource
	Cache    *cache.Cache

	logger  *log.Logger
	pgPool  *pgstore.Pool
	closers []func()
}

// Open connects every backend the settings name. Postgres and ClickHouse
// schemas are migrated on open.
func Open(ctx context.Context, settings config.Settings, logger *log.Logger) (*Env, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	e := &Env{Settings: settings, logger: logger}

	if err := e.openSources(ctx); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.openCache(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// WithSources replaces the input sources, e.g. with generated fixtures.
func (e *Env) WithSources(segs storage.SegmentSource, metrics storage.MetricsSource) *Env {
	e.Segments = segs
	e.Metrics = metrics
	return e
}

// Orchestrator builds an orchestrator over the opened collaborators.
func (e *Env) Orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		Settings: e.Settings,
		Segments: e.Segments,
		Metrics:  e.Metrics,
		Cache:    e.Cache,
		Logger:   e.logger,
	})
}

// Close releases connections in reverse open order.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

func (e *Env) postgres(ctx context.Context) (*pgstore.Pool, error) {
	if e.pgPool != nil {
		return e.pgPool, nil
	}
	pool, err := pgstore.NewPool(ctx, e.Settings.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	e.closers = append(e.closers, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	e.pgPool = pool
	return pool, nil
}

func (e *Env) openSources(ctx context.Context) error {
	s := e.Settings
	dir := csvdir.New(s.DataDir)

	switch s.SegmentSource {
	case config.SourcePostgres:
		pool, err := e.postgres(ctx)
		if err != nil {
			return err
		}
		e.Segments = pgstore.NewSegmentSource(pool, s.SegmentColumns, s.BaseMonth)
	default:
		e.Segments = dir
	}

	switch s.MetricsSource {
	case config.SourceClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, s.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		e.closers = append(e.closers, func() { _ = conn.Close() })
		e.Metrics = chstore.NewMetricSource(conn, s.MetricsColumns)
	default:
		e.Metrics = dir
	}
	return nil
}

func (e *Env) openCache(ctx context.Context) error {
	s := e.Settings
	if !s.CacheEnabled {
		e.Cache = cache.Disabled()
		return nil
	}

	var store storage.BlobStore
	switch s.CacheBackend {
	case config.CacheBackendMemory:
		store = memory.NewBlobStore()
	case config.CacheBackendPostgres:
		pool, err := e.postgres(ctx)
		if err != nil {
			return err
		}
		store = pgstore.NewBlobStore(pool)
	case config.CacheBackendSQLite:
		db, err := sqlite.Open(ctx, s.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite cache: %w", err)
		}
		e.closers = append(e.closers, func() { _ = db.Close() })
		store = db
	default:
		fs, err := filesystem.NewBlobStore(s.CacheDir)
		if err != nil {
			return fmt.Errorf("file cache: %w", err)
		}
		store = fs
	}

	e.Cache = cache.New(cache.Options{Store: store, Enabled: true, Logger: e.logger})
	e.logger.Printf("[bootstrap] cache backend %s", s.CacheBackend)
	return nil
}

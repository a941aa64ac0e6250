// Package config holds the settings object threaded through every component.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"

	"segment-flow-lab/internal/period"
)

// Cache backends.
const (
	CacheBackendFile     = "file"
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
	CacheBackendSQLite   = "sqlite"
)

// Input sources.
const (
	SourceCSV        = "csv"
	SourcePostgres   = "postgres"
	SourceClickhouse = "clickhouse"
)

// SegmentColumns maps assignment-table columns to their roles.
type SegmentColumns struct {
	Entity  string `env:"ENTITY"  envDefault:"glbl_enti_nbr"`
	Month   string `env:"MONTH"   envDefault:"segmentation_mnth"`
	Segment string `env:"SEGMENT" envDefault:"dmnt_seg_cd"`
}

// MetricsColumns names the key columns of the metrics table. Every other
// column is a metric.
type MetricsColumns struct {
	Entity string `env:"ENTITY" envDefault:"glbl_enti_nbr"`
	Month  string `env:"MONTH"  envDefault:"shp_dt_yyyymm"`
}

// Settings is built once at startup and passed by value.
type Settings struct {
	DataDir   string `env:"SEGFLOW_DATA_DIR"   envDefault:"data/raw"`
	CacheDir  string `env:"SEGFLOW_CACHE_DIR"  envDefault:"data/processed"`
	ExportDir string `env:"SEGFLOW_EXPORT_DIR" envDefault:"data/exports"`

	// BaseMonth is the fixed base period for database-backed segment sources.
	// File sources take the base month from the base file itself.
	BaseMonth    int  `env:"SEGFLOW_BASE_MONTH"    envDefault:"202406"`
	WindowMonths int  `env:"SEGFLOW_WINDOW_MONTHS" envDefault:"12"`
	CacheEnabled bool `env:"SEGFLOW_CACHE_ENABLED" envDefault:"true"`

	CacheBackend  string `env:"SEGFLOW_CACHE_BACKEND"  envDefault:"file"`
	SegmentSource string `env:"SEGFLOW_SEGMENT_SOURCE" envDefault:"csv"`
	MetricsSource string `env:"SEGFLOW_METRICS_SOURCE" envDefault:"csv"`

	PostgresDSN   string `env:"SEGFLOW_POSTGRES_DSN"`
	ClickhouseDSN string `env:"SEGFLOW_CLICKHOUSE_DSN"`
	SQLitePath    string `env:"SEGFLOW_SQLITE_PATH" envDefault:"data/processed/cache.db"`
	OTLPEndpoint  string `env:"SEGFLOW_OTEL_ENDPOINT"`

	SegmentColumns SegmentColumns `envPrefix:"SEGFLOW_SEGMENT_COL_"`
	MetricsColumns MetricsColumns `envPrefix:"SEGFLOW_METRICS_COL_"`

	// RevenueMarker selects revenue metrics: a metric is revenue when its name
	// contains the marker (e.g. "A1_rev_wf").
	RevenueMarker string `env:"SEGFLOW_REVENUE_MARKER" envDefault:"_rev_"`
}

// Default returns the settings used when no environment overrides are present.
func Default() Settings {
	return Settings{
		DataDir:       "data/raw",
		CacheDir:      "data/processed",
		ExportDir:     "data/exports",
		BaseMonth:     202406,
		WindowMonths:  12,
		CacheEnabled:  true,
		CacheBackend:  CacheBackendFile,
		SegmentSource: SourceCSV,
		MetricsSource: SourceCSV,
		SQLitePath:    "data/processed/cache.db",
		SegmentColumns: SegmentColumns{
			Entity:  "glbl_enti_nbr",
			Month:   "segmentation_mnth",
			Segment: "dmnt_seg_cd",
		},
		MetricsColumns: MetricsColumns{
			Entity: "glbl_enti_nbr",
			Month:  "shp_dt_yyyymm",
		},
		RevenueMarker: "_rev_",
	}
}

// LoadFromEnv parses SEGFLOW_* environment variables over the defaults and validates the result.
func LoadFromEnv() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings for internal consistency.
func (s Settings) Validate() error {
	var errs []error

	if s.WindowMonths < 1 {
		errs = append(errs, fmt.Errorf("window months must be >= 1, got %d", s.WindowMonths))
	}
	if s.SegmentColumns.Entity == "" || s.SegmentColumns.Month == "" || s.SegmentColumns.Segment == "" {
		errs = append(errs, errors.New("segment column mapping must name entity, month and segment columns"))
	}
	if s.MetricsColumns.Entity == "" || s.MetricsColumns.Month == "" {
		errs = append(errs, errors.New("metrics column mapping must name entity and month columns"))
	}
	if s.MetricsColumns.Entity == s.MetricsColumns.Month {
		errs = append(errs, errors.New("metrics entity and month columns must differ"))
	}
	if s.RevenueMarker == "" {
		errs = append(errs, errors.New("revenue marker must not be empty"))
	}

	switch s.CacheBackend {
	case CacheBackendFile, CacheBackendMemory, CacheBackendSQLite:
	case CacheBackendPostgres:
		if s.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres cache backend requires a postgres DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", s.CacheBackend))
	}

	switch s.SegmentSource {
	case SourceCSV:
	case SourcePostgres:
		if s.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres segment source requires a postgres DSN"))
		}
		if !period.Valid(s.BaseMonth) {
			errs = append(errs, fmt.Errorf("postgres segment source requires a valid base month, got %d", s.BaseMonth))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown segment source %q", s.SegmentSource))
	}

	switch s.MetricsSource {
	case SourceCSV:
	case SourceClickhouse:
		if s.ClickhouseDSN == "" {
			errs = append(errs, errors.New("clickhouse metrics source requires a clickhouse DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown metrics source %q", s.MetricsSource))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	s, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, Default(), s)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("SEGFLOW_WINDOW_MONTHS", "6")
	t.Setenv("SEGFLOW_CACHE_ENABLED", "false")
	t.Setenv("SEGFLOW_SEGMENT_COL_ENTITY", "customer_id")
	t.Setenv("SEGFLOW_METRICS_COL_MONTH", "period")

	s, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 6, s.WindowMonths)
	assert.False(t, s.CacheEnabled)
	assert.Equal(t, "customer_id", s.SegmentColumns.Entity)
	assert.Equal(t, "segmentation_mnth", s.SegmentColumns.Month)
	assert.Equal(t, "period", s.MetricsColumns.Month)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero window", func(s *Settings) { s.WindowMonths = 0 }},
		{"missing segment column", func(s *Settings) { s.SegmentColumns.Segment = "" }},
		{"same metrics key columns", func(s *Settings) { s.MetricsColumns.Month = s.MetricsColumns.Entity }},
		{"unknown backend", func(s *Settings) { s.CacheBackend = "redis" }},
		{"postgres backend without dsn", func(s *Settings) { s.CacheBackend = CacheBackendPostgres }},
		{"clickhouse source without dsn", func(s *Settings) { s.MetricsSource = SourceClickhouse }},
		{"empty revenue marker", func(s *Settings) { s.RevenueMarker = "" }},
		{"postgres source with bad base month", func(s *Settings) {
			s.SegmentSource = SourcePostgres
			s.PostgresDSN = "postgres://localhost/db"
			s.BaseMonth = 202413
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

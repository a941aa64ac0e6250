package bootstrap

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/storage/csvdir"
	"segment-flow-lab/internal/storage/memory"
	"segment-flow-lab/internal/table"
)

var quiet = log.New(io.Discard, "", 0)

func csvSettings(t *testing.T) config.Settings {
	t.Helper()
	s := config.Default()
	s.DataDir = t.TempDir()
	s.CacheDir = t.TempDir()
	s.SQLitePath = filepath.Join(t.TempDir(), "cache.db")
	return s
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []string{config.CacheBackendFile, config.CacheBackendMemory, config.CacheBackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s := csvSettings(t)
			s.CacheBackend = backend

			env, err := Open(context.Background(), s, quiet)
			require.NoError(t, err)
			defer env.Close()

			assert.True(t, env.Cache.Enabled())
			assert.IsType(t, &csvdir.Dir{}, env.Segments)
			assert.IsType(t, &csvdir.Dir{}, env.Metrics)
		})
	}
}

func TestOpen_CacheDisabled(t *testing.T) {
	s := csvSettings(t)
	s.CacheEnabled = false

	env, err := Open(context.Background(), s, quiet)
	require.NoError(t, err)
	defer env.Close()

	assert.False(t, env.Cache.Enabled())
}

func TestOpen_InvalidSettings(t *testing.T) {
	s := csvSettings(t)
	s.CacheBackend = "redis"

	_, err := Open(context.Background(), s, quiet)
	assert.Error(t, err)
}

func TestEnv_OrchestratorWithSources(t *testing.T) {
	s := csvSettings(t)
	s.CacheBackend = config.CacheBackendMemory
	s.SegmentColumns = config.SegmentColumns{Entity: "id", Month: "month", Segment: "seg"}
	s.MetricsColumns = config.MetricsColumns{Entity: "id", Month: "month"}

	env, err := Open(context.Background(), s, quiet)
	require.NoError(t, err)
	defer env.Close()

	base := table.New("id", "month", "seg")
	base.Append("E1", 202406, "SEG01")
	cur := table.New("id", "month", "seg")
	cur.Append("E1", 202411, "SEG02")
	segs := memory.NewSegmentSource(base)
	segs.AddCurrent(202411, cur)
	metrics := table.New("id", "month", "A1_rev_wf")
	metrics.Append("E1", 202411, 10.0)

	orch := env.WithSources(segs, &memory.MetricsSource{Metrics: metrics}).Orchestrator()
	a, err := orch.Analyze(context.Background(), 202411, "")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Snapshot.Len())

	again, err := orch.Snapshot(context.Background(), 202411)
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
}

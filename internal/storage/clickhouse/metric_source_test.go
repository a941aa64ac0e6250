package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
)

func TestPivot(t *testing.T) {
	cols := config.Default().MetricsColumns
	values := []domain.MetricValue{
		{EntityID: "E1", Month: 202401, Metric: "B1_rev_wf", Value: 5},
		{EntityID: "E1", Month: 202401, Metric: "A1_rev_wf", Value: 10},
		{EntityID: "E2", Month: 202402, Metric: "A1_rev_wf", Value: 7},
		{EntityID: "E1", Month: 202401, Metric: "A1_rev_wf", Value: 1},
	}

	got := Pivot(values, cols)

	assert.Equal(t, []string{cols.Entity, cols.Month, "A1_rev_wf", "B1_rev_wf"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []any{"E1", 202401, 11.0, 5.0}, got.Rows[0])
	assert.Equal(t, []any{"E2", 202402, 7.0, nil}, got.Rows[1])
}

func TestMetricSource_InsertAndLoad(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cols := config.Default().MetricsColumns
	src := NewMetricSource(conn, cols)

	err := src.InsertBulk(ctx, []domain.MetricValue{
		{EntityID: "E2", Month: 202402, Metric: "A1_rev_wf", Value: 7},
		{EntityID: "E1", Month: 202401, Metric: "A1_rev_wf", Value: 10},
		{EntityID: "E1", Month: 202401, Metric: "B1_rev_wf", Value: 5},
	})
	require.NoError(t, err)

	got, err := src.LoadMetrics(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{cols.Entity, cols.Month, "A1_rev_wf", "B1_rev_wf"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "E1", got.Rows[0][0])
	assert.InDelta(t, 10.0, got.Rows[0][2], 1e-9)
	assert.Nil(t, got.Rows[1][3])
}

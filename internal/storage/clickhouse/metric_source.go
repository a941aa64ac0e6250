package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/storage"
	"segment-flow-lab/internal/table"
)

// MetricSource implements storage.MetricsSource over the long-form
// metric_values table, pivoting it to one row per (entity, month).
type MetricSource struct {
	conn *Conn
	cols config.MetricsColumns
}

// NewMetricSource creates a new MetricSource. Output columns are named after cols.
func NewMetricSource(conn *Conn, cols config.MetricsColumns) *MetricSource {
	return &MetricSource{conn: conn, cols: cols}
}

// Compile-time interface check.
var _ storage.MetricsSource = (*MetricSource)(nil)

// LoadMetrics returns the metrics table. Metric columns are sorted by name;
// a metric with no observation for an (entity, month) is a nil cell.
func (s *MetricSource) LoadMetrics(ctx context.Context) (table.Table, error) {
	start := time.Now()
	t, err := s.loadMetrics(ctx)
	observability.RecordDBQuery("clickhouse", "load_metrics", time.Since(start).Seconds(), err)
	return t, err
}

func (s *MetricSource) loadMetrics(ctx context.Context) (table.Table, error) {
	query := `
		SELECT entity_id, month, metric_name, sum(value)
		FROM metric_values
		GROUP BY entity_id, month, metric_name
		ORDER BY entity_id, month, metric_name
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return table.Table{}, fmt.Errorf("query metric values: %w", err)
	}
	defer rows.Close()

	var values []domain.MetricValue
	for rows.Next() {
		var (
			v     domain.MetricValue
			month uint32
		)
		if err := rows.Scan(&v.EntityID, &month, &v.Metric, &v.Value); err != nil {
			return table.Table{}, fmt.Errorf("scan metric value: %w", err)
		}
		v.Month = int(month)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, fmt.Errorf("iterate metric values: %w", err)
	}

	return Pivot(values, s.cols), nil
}

// InsertBulk appends metric observations in one batch.
func (s *MetricSource) InsertBulk(ctx context.Context, values []domain.MetricValue) error {
	if len(values) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_values (entity_id, month, metric_name, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, v := range values {
		if v.EntityID == "" || v.Metric == "" {
			return storage.ErrInvalidInput
		}
		if err := batch.Append(v.EntityID, uint32(v.Month), v.Metric, v.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Pivot turns long-form observations into the wide metrics table: one row per
// (entity, month) in first-seen order, one column per metric sorted by name.
func Pivot(values []domain.MetricValue, cols config.MetricsColumns) table.Table {
	metricSet := make(map[string]struct{})
	for _, v := range values {
		metricSet[v.Metric] = struct{}{}
	}
	metrics := make([]string, 0, len(metricSet))
	for m := range metricSet {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	pos := make(map[string]int, len(metrics))
	for i, m := range metrics {
		pos[m] = i + 2
	}

	t := table.New(append([]string{cols.Entity, cols.Month}, metrics...)...)

	type rowKey struct {
		entity string
		month  int
	}
	index := make(map[rowKey]int)

	for _, v := range values {
		k := rowKey{v.EntityID, v.Month}
		i, ok := index[k]
		if !ok {
			cells := make([]any, len(t.Columns))
			cells[0] = v.EntityID
			cells[1] = v.Month
			t.Append(cells...)
			i = t.Len() - 1
			index[k] = i
		}
		cur, _ := table.AsFloat(t.Rows[i][pos[v.Metric]])
		t.Rows[i][pos[v.Metric]] = cur + v.Value
	}
	return t
}

// Package movement derives segment summary, movement matrix and flow views
// from a snapshot. Every function is total over a well-formed snapshot.
package movement

import (
	"segment-flow-lab/internal/domain"
)

// MetricCount selects the number of entities instead of a named metric.
const MetricCount = "count"

// CalculateMetric returns the entity count of rows for MetricCount, otherwise
// the sum of the metric for period over rows. An unknown metric or an empty
// subset yields 0.
func CalculateMetric(s *domain.Snapshot, rows []domain.SnapshotRow, p domain.Period, metric string) float64 {
	if len(rows) == 0 {
		return 0
	}
	if metric == MetricCount {
		return float64(len(rows))
	}
	idx, ok := s.MetricIndex(metric)
	if !ok {
		return 0
	}
	var sum float64
	for _, r := range rows {
		vals := r.Values(p)
		if idx < len(vals) {
			sum += vals[idx]
		}
	}
	return sum
}

// filter returns the rows matching keep, in snapshot order.
func filter(s *domain.Snapshot, keep func(domain.SnapshotRow) bool) []domain.SnapshotRow {
	var out []domain.SnapshotRow
	for _, r := range s.Rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

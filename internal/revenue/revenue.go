// Package revenue selects revenue metrics from a snapshot and derives the
// product mix, segment x product and per-entity revenue views.
package revenue

import (
	"strings"

	"segment-flow-lab/internal/domain"
)

// DefaultMarker identifies revenue metrics by substring ("A1_rev_wf").
const DefaultMarker = "_rev_"

// Columns is the set of revenue metrics in a snapshot.
type Columns struct {
	Marker  string
	Indices []int    // positions in Snapshot.MetricNames
	Names   []string // metric names, same order
}

// Select returns the snapshot metrics whose name contains marker, in snapshot
// metric order. An empty marker falls back to DefaultMarker.
func Select(s *domain.Snapshot, marker string) Columns {
	if marker == "" {
		marker = DefaultMarker
	}
	c := Columns{Marker: marker}
	for i, m := range s.MetricNames {
		if strings.Contains(m, marker) {
			c.Indices = append(c.Indices, i)
			c.Names = append(c.Names, m)
		}
	}
	return c
}

// Empty reports whether no revenue metric was found.
func (c Columns) Empty() bool {
	return len(c.Indices) == 0
}

// Total sums a row's revenue metrics for period p.
func (c Columns) Total(r domain.SnapshotRow, p domain.Period) float64 {
	vals := r.Values(p)
	var sum float64
	for _, i := range c.Indices {
		if i < len(vals) {
			sum += vals[i]
		}
	}
	return sum
}

// Sum totals revenue for period p over rows.
func (c Columns) Sum(rows []domain.SnapshotRow, p domain.Period) float64 {
	var sum float64
	for _, r := range rows {
		sum += c.Total(r, p)
	}
	return sum
}

// Product strips the marker and everything after it from a metric name
// ("A1_rev_wf" -> "A1").
func (c Columns) Product(metric string) string {
	if i := strings.Index(metric, c.Marker); i >= 0 {
		return metric[:i]
	}
	return metric
}

// ChangePct returns (current-base)/base*100, or 0 when base is not positive.
func ChangePct(base, current float64) float64 {
	if base <= 0 {
		return 0
	}
	return (current - base) / base * 100
}

package domain

import "segment-flow-lab/internal/table"

// AggregatedMetrics holds one row per entity with every metric summed over a
// trailing window ending at TargetMonth. Entities with no rows in the window
// are absent.
type AggregatedMetrics struct {
	TargetMonth  int
	WindowMonths int
	Months       []int    // window months, ascending
	MetricNames  []string // metric column order for every row's Values
	Rows         []AggregatedRow
}

// AggregatedRow is one entity's window sums, aligned with MetricNames.
type AggregatedRow struct {
	EntityID string
	Values   []float64
}

// ByEntity indexes row values by entity id.
func (a *AggregatedMetrics) ByEntity() map[string][]float64 {
	m := make(map[string][]float64, len(a.Rows))
	for _, r := range a.Rows {
		m[r.EntityID] = r.Values
	}
	return m
}

// Table renders the aggregate as (entityColumn, metric...) rows.
func (a *AggregatedMetrics) Table(entityColumn string) table.Table {
	t := table.New(append([]string{entityColumn}, a.MetricNames...)...)
	for _, r := range a.Rows {
		cells := make([]any, 0, len(r.Values)+1)
		cells = append(cells, r.EntityID)
		for _, v := range r.Values {
			cells = append(cells, v)
		}
		t.Append(cells...)
	}
	return t
}

package domain

import (
	"sort"

	"segment-flow-lab/internal/table"
)

// Period selects the base or current side of a snapshot.
type Period string

const (
	PeriodBase    Period = "base"
	PeriodCurrent Period = "current"
)

// Snapshot column names.
const (
	ColumnEntityID       = "entity_id"
	ColumnBaseSegment    = "base_segment"
	ColumnCurrentSegment = "current_segment"
	ColumnStatus         = "status"
)

// Snapshot is the joined, status-classified, metric-enriched comparison of one
// (base, current) month pair. It is immutable once built.
type Snapshot struct {
	BaseMonth    int
	CurrentMonth int
	WindowMonths int
	MetricNames  []string
	Rows         []SnapshotRow // ordered by EntityID
}

// SnapshotRow is one entity present in either period. An empty segment means
// the entity is absent from that period. Base and Current are aligned with
// Snapshot.MetricNames and zero-filled.
type SnapshotRow struct {
	EntityID       string
	BaseSegment    string
	CurrentSegment string
	Status         Status
	Base           []float64
	Current        []float64
}

// InBase reports whether the entity has a base-period assignment.
func (r SnapshotRow) InBase() bool { return r.BaseSegment != "" }

// InCurrent reports whether the entity has a current-period assignment.
func (r SnapshotRow) InCurrent() bool { return r.CurrentSegment != "" }

// Values returns the metric vector for the given period.
func (r SnapshotRow) Values(p Period) []float64 {
	if p == PeriodBase {
		return r.Base
	}
	return r.Current
}

// Len returns the number of entities.
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// MetricIndex returns the position of a metric in every row's value vectors.
func (s *Snapshot) MetricIndex(name string) (int, bool) {
	for i, m := range s.MetricNames {
		if m == name {
			return i, true
		}
	}
	return 0, false
}

// Columns returns entity_id, base_segment, current_segment, status, then
// base_<metric> for every metric, then current_<metric>.
func (s *Snapshot) Columns() []string {
	cols := make([]string, 0, 4+2*len(s.MetricNames))
	cols = append(cols, ColumnEntityID, ColumnBaseSegment, ColumnCurrentSegment, ColumnStatus)
	for _, m := range s.MetricNames {
		cols = append(cols, string(PeriodBase)+"_"+m)
	}
	for _, m := range s.MetricNames {
		cols = append(cols, string(PeriodCurrent)+"_"+m)
	}
	return cols
}

// Table renders the snapshot in its wide tabular form. Absent segments are nil cells.
func (s *Snapshot) Table() table.Table {
	t := table.New(s.Columns()...)
	for _, r := range s.Rows {
		cells := make([]any, 0, 4+2*len(s.MetricNames))
		cells = append(cells, r.EntityID, nullable(r.BaseSegment), nullable(r.CurrentSegment), string(r.Status))
		for _, v := range r.Base {
			cells = append(cells, v)
		}
		for _, v := range r.Current {
			cells = append(cells, v)
		}
		t.Append(cells...)
	}
	return t
}

// BaseSegments returns the distinct base segments, sorted.
func (s *Snapshot) BaseSegments() []string {
	return s.distinct(func(r SnapshotRow) []string { return []string{r.BaseSegment} })
}

// CurrentSegments returns the distinct current segments, sorted.
func (s *Snapshot) CurrentSegments() []string {
	return s.distinct(func(r SnapshotRow) []string { return []string{r.CurrentSegment} })
}

// Segments returns the union of base and current segments, sorted.
func (s *Snapshot) Segments() []string {
	return s.distinct(func(r SnapshotRow) []string { return []string{r.BaseSegment, r.CurrentSegment} })
}

// AvailableMetrics returns the metric names, sorted.
func (s *Snapshot) AvailableMetrics() []string {
	out := append([]string(nil), s.MetricNames...)
	sort.Strings(out)
	return out
}

// Find returns the row for an entity. The boolean is false when the entity is
// not in the snapshot, which is a normal result rather than a failure.
func (s *Snapshot) Find(entityID string) (SnapshotRow, bool) {
	for _, r := range s.Rows {
		if r.EntityID == entityID {
			return r, true
		}
	}
	return SnapshotRow{}, false
}

// StatusCounts counts rows per status.
func (s *Snapshot) StatusCounts() map[Status]int {
	counts := make(map[Status]int, len(AllStatuses))
	for _, r := range s.Rows {
		counts[r.Status]++
	}
	return counts
}

func (s *Snapshot) distinct(keys func(SnapshotRow) []string) []string {
	seen := make(map[string]struct{})
	for _, r := range s.Rows {
		for _, k := range keys(r) {
			if k != "" {
				seen[k] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package movement

import (
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/table"
)

// Summary column names.
const (
	ColSegment      = "Segment"
	ColBase         = "Base"
	ColCurrent      = "Current"
	ColRetained     = "Retained"
	ColNewSystem    = "New (System)"
	ColAddedOther   = "Added (Other Seg)"
	ColLostOther    = "Lost (Other Seg)"
	ColLostSystem   = "Lost (System)"
	ColNetChange    = "Net Change"
	TotalRowSegment = "TOTAL"
)

// SummaryColumns lists the numeric summary columns in display order.
var SummaryColumns = []string{ColBase, ColCurrent, ColRetained, ColNewSystem, ColAddedOther, ColLostOther, ColLostSystem, ColNetChange}

// SummaryRow is one segment's movement summary. Values are aligned with SummaryColumns.
type SummaryRow struct {
	Segment string
	Values  [8]float64
}

// Summary is the per-segment summary plus a TOTAL row.
type Summary struct {
	Metric string
	Rows   []SummaryRow // per segment, sorted by segment code
	Total  SummaryRow
}

// SummaryView computes, for every segment in either period, the base and
// current metric and its decomposition into retained, new, added, lost and
// churned parts. Retained, New and Added use current-period values; Lost
// columns use base-period values. The TOTAL row is the column-wise sum of the
// segment rows.
func SummaryView(s *domain.Snapshot, metric string) Summary {
	out := Summary{Metric: metric, Total: SummaryRow{Segment: TotalRowSegment}}

	for _, seg := range s.Segments() {
		inBase := func(r domain.SnapshotRow) bool { return r.BaseSegment == seg }
		inCurrent := func(r domain.SnapshotRow) bool { return r.CurrentSegment == seg }

		row := SummaryRow{Segment: seg}
		row.Values[0] = CalculateMetric(s, filter(s, inBase), domain.PeriodBase, metric)
		row.Values[1] = CalculateMetric(s, filter(s, inCurrent), domain.PeriodCurrent, metric)
		row.Values[2] = CalculateMetric(s, filter(s, func(r domain.SnapshotRow) bool {
			return inBase(r) && inCurrent(r)
		}), domain.PeriodCurrent, metric)
		row.Values[3] = CalculateMetric(s, filter(s, func(r domain.SnapshotRow) bool {
			return inCurrent(r) && !r.InBase()
		}), domain.PeriodCurrent, metric)
		row.Values[4] = CalculateMetric(s, filter(s, func(r domain.SnapshotRow) bool {
			return inCurrent(r) && r.InBase() && !inBase(r)
		}), domain.PeriodCurrent, metric)
		row.Values[5] = CalculateMetric(s, filter(s, func(r domain.SnapshotRow) bool {
			return inBase(r) && r.InCurrent() && !inCurrent(r)
		}), domain.PeriodBase, metric)
		row.Values[6] = CalculateMetric(s, filter(s, func(r domain.SnapshotRow) bool {
			return inBase(r) && !r.InCurrent()
		}), domain.PeriodBase, metric)
		row.Values[7] = row.Values[1] - row.Values[0]

		out.Rows = append(out.Rows, row)
	}

	for _, row := range out.Rows {
		for i, v := range row.Values {
			out.Total.Values[i] += v
		}
	}
	return out
}

// Value returns a named column of a row.
func (r SummaryRow) Value(column string) float64 {
	for i, c := range SummaryColumns {
		if c == column {
			return r.Values[i]
		}
	}
	return 0
}

// Table renders the summary with the TOTAL row last.
func (v Summary) Table() table.Table {
	t := table.New(append([]string{ColSegment}, SummaryColumns...)...)
	for _, r := range append(append([]SummaryRow(nil), v.Rows...), v.Total) {
		cells := make([]any, 0, len(r.Values)+1)
		cells = append(cells, r.Segment)
		for _, x := range r.Values {
			cells = append(cells, x)
		}
		t.Append(cells...)
	}
	return t
}

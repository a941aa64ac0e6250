package movement

import (
	"math"
	"reflect"
	"testing"

	"segment-flow-lab/internal/domain"
)

func row(id, base, current string, baseRev, currentRev float64) domain.SnapshotRow {
	return domain.SnapshotRow{
		EntityID:       id,
		BaseSegment:    base,
		CurrentSegment: current,
		Status:         domain.ClassifyStatus(base, current),
		Base:           []float64{baseRev},
		Current:        []float64{currentRev},
	}
}

func exampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		BaseMonth:    202406,
		CurrentMonth: 202411,
		MetricNames:  []string{"A1_rev_wf"},
		Rows: []domain.SnapshotRow{
			row("E1", "SEG01", "SEG01", 100, 120),
			row("E2", "SEG02", "", 50, 0),
			row("E3", "", "SEG03", 0, 30),
		},
	}
}

func richSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		MetricNames: []string{"A1_rev_wf"},
		Rows: []domain.SnapshotRow{
			row("E1", "SEG01", "SEG01", 100, 120),
			row("E2", "SEG01", "SEG02", 80, 60),
			row("E3", "SEG02", "SEG01", 40.5, 70.25),
			row("E4", "SEG02", "", 10, 0),
			row("E5", "", "SEG02", 0, 15),
			row("E6", "SEG03", "SEG03", 5, 0),
			row("E7", "SEG03", "", 0.1, 0),
			row("E8", "", "SEG04", 0, -3),
		},
	}
}

func TestCalculateMetric(t *testing.T) {
	s := exampleSnapshot()

	tests := []struct {
		name   string
		rows   []domain.SnapshotRow
		period domain.Period
		metric string
		want   float64
	}{
		{"count", s.Rows, domain.PeriodBase, MetricCount, 3},
		{"base sum", s.Rows, domain.PeriodBase, "A1_rev_wf", 150},
		{"current sum", s.Rows, domain.PeriodCurrent, "A1_rev_wf", 150},
		{"unknown metric", s.Rows, domain.PeriodBase, "Z9_rev_wf", 0},
		{"empty count", nil, domain.PeriodBase, MetricCount, 0},
		{"empty sum", nil, domain.PeriodCurrent, "A1_rev_wf", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateMetric(s, tt.rows, tt.period, tt.metric); got != tt.want {
				t.Errorf("CalculateMetric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummaryView_Example(t *testing.T) {
	v := SummaryView(exampleSnapshot(), MetricCount)

	if len(v.Rows) != 3 {
		t.Fatalf("expected 3 segment rows, got %d", len(v.Rows))
	}
	want := map[string]float64{
		ColBase:       2,
		ColCurrent:    2,
		ColRetained:   1,
		ColNewSystem:  1,
		ColAddedOther: 0,
		ColLostOther:  0,
		ColLostSystem: 1,
		ColNetChange:  0,
	}
	for col, w := range want {
		if got := v.Total.Value(col); got != w {
			t.Errorf("TOTAL %s = %v, want %v", col, got, w)
		}
	}

	tbl := v.Table()
	last := tbl.Rows[tbl.Len()-1]
	if last[0] != TotalRowSegment {
		t.Errorf("last row = %v, want TOTAL", last[0])
	}
}

func TestSummaryView_Decomposition(t *testing.T) {
	v := SummaryView(richSnapshot(), "A1_rev_wf")

	seg01 := v.Rows[0]
	if seg01.Segment != "SEG01" {
		t.Fatalf("first segment = %s", seg01.Segment)
	}
	// Base: E1 100 + E2 80; Current: E1 120 + E3 70.25
	checks := map[string]float64{
		ColBase:       180,
		ColCurrent:    190.25,
		ColRetained:   120,
		ColNewSystem:  0,
		ColAddedOther: 70.25,
		ColLostOther:  80,
		ColLostSystem: 0,
		ColNetChange:  10.25,
	}
	for col, w := range checks {
		if got := seg01.Value(col); got != w {
			t.Errorf("SEG01 %s = %v, want %v", col, got, w)
		}
	}
}

func TestSummaryView_TotalIsColumnSum(t *testing.T) {
	for _, metric := range []string{MetricCount, "A1_rev_wf", "missing"} {
		v := SummaryView(richSnapshot(), metric)
		var sums [8]float64
		for _, r := range v.Rows {
			for i, x := range r.Values {
				sums[i] += x
			}
		}
		if sums != v.Total.Values {
			t.Errorf("%s: TOTAL %v != column sums %v", metric, v.Total.Values, sums)
		}
	}
}

func TestMovementMatrix_Invariants(t *testing.T) {
	s := richSnapshot()

	for _, metric := range []string{MetricCount, "A1_rev_wf"} {
		m := MovementMatrix(s, metric)

		var grandOut float64
		for i, r := range m.Cells {
			var sum float64
			for _, v := range r {
				sum += v
			}
			if sum != m.TotalOut[i] {
				t.Errorf("%s: row %s Total Out = %v, want %v", metric, m.RowLabel[i], m.TotalOut[i], sum)
			}
			grandOut += m.TotalOut[i]
		}

		var grandIn float64
		for j := range m.ColLabel {
			var sum float64
			for i := range m.Cells {
				sum += m.Cells[i][j]
			}
			if sum != m.TotalIn[j] {
				t.Errorf("%s: column %s Total In = %v, want %v", metric, m.ColLabel[j], m.TotalIn[j], sum)
			}
			grandIn += m.TotalIn[j]
		}

		if math.Abs(grandIn-grandOut) > 1e-9 || math.Abs(m.GrandTotal()-grandOut) > 1e-9 {
			t.Errorf("%s: grand totals differ: in=%v out=%v corner=%v", metric, grandIn, grandOut, m.GrandTotal())
		}
	}

	if got := MovementMatrix(s, MetricCount).GrandTotal(); got != float64(s.Len()) {
		t.Errorf("count matrix total = %v, want %d", got, s.Len())
	}
}

func TestMovementMatrix_Labels(t *testing.T) {
	m := MovementMatrix(richSnapshot(), MetricCount)

	if !reflect.DeepEqual(m.RowLabel, []string{"SEG01", "SEG02", "SEG03", "New"}) {
		t.Errorf("RowLabel = %v", m.RowLabel)
	}
	if !reflect.DeepEqual(m.ColLabel, []string{"SEG01", "SEG02", "SEG03", "SEG04", "Lost"}) {
		t.Errorf("ColLabel = %v", m.ColLabel)
	}
	// SEG02 -> Lost: E4
	if m.Cells[1][4] != 1 {
		t.Errorf("SEG02->Lost = %v, want 1", m.Cells[1][4])
	}
	// New -> SEG04: E8
	if m.Cells[3][3] != 1 {
		t.Errorf("New->SEG04 = %v, want 1", m.Cells[3][3])
	}
	if m.Cells[3][4] != 0 {
		t.Errorf("New->Lost must be 0, got %v", m.Cells[3][4])
	}

	tbl := m.Table()
	if tbl.Columns[0] != MatrixCorner || tbl.Columns[len(tbl.Columns)-1] != MatrixTotalOut {
		t.Errorf("matrix columns = %v", tbl.Columns)
	}
	if tbl.Rows[tbl.Len()-1][0] != MatrixTotalIn {
		t.Errorf("last row = %v, want Total In", tbl.Rows[tbl.Len()-1][0])
	}
}

func TestSankeyFlows(t *testing.T) {
	k := SankeyFlows(richSnapshot(), "A1_rev_wf")

	wantLabels := []string{
		"SEG01 (Base)", "SEG02 (Base)", "SEG03 (Base)",
		"SEG01 (Current)", "SEG02 (Current)", "SEG03 (Current)", "SEG04 (Current)",
		"New (System)", "Lost (System)",
	}
	if !reflect.DeepEqual(k.Labels, wantLabels) {
		t.Fatalf("Labels = %v", k.Labels)
	}

	for _, f := range k.Flows {
		if f.Value == 0 {
			t.Errorf("zero flow emitted: %+v", f)
		}
	}

	// SEG03 -> SEG03 has current value 0 and must be omitted.
	for _, f := range k.Flows {
		if k.Labels[f.Source] == "SEG03 (Base)" && k.Labels[f.Target] == "SEG03 (Current)" {
			t.Errorf("zero-valued SEG03 flow emitted")
		}
	}

	// New -> SEG04 is negative but nonzero.
	found := false
	for _, f := range k.Flows {
		if k.Labels[f.Source] == NodeNewSystem && k.Labels[f.Target] == "SEG04 (Current)" {
			found = f.Value == -3
		}
	}
	if !found {
		t.Error("expected New -> SEG04 flow of -3")
	}
}

func TestViews_EmptySnapshot(t *testing.T) {
	s := &domain.Snapshot{MetricNames: []string{"A1_rev_wf"}}

	if v := SummaryView(s, MetricCount); len(v.Rows) != 0 || v.Total.Values != [8]float64{} {
		t.Errorf("empty summary = %+v", v)
	}
	m := MovementMatrix(s, MetricCount)
	if len(m.RowLabel) != 1 || len(m.ColLabel) != 1 || m.GrandTotal() != 0 {
		t.Errorf("empty matrix = %+v", m)
	}
	if k := SankeyFlows(s, MetricCount); len(k.Flows) != 0 || len(k.Labels) != 2 {
		t.Errorf("empty sankey = %+v", k)
	}
}

package movement

import (
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/table"
)

// Matrix labels.
const (
	MatrixCorner   = "Base → Current"
	MatrixNew      = "New"
	MatrixLost     = "Lost"
	MatrixTotalOut = "Total Out"
	MatrixTotalIn  = "Total In"
)

// Matrix is the base x current movement matrix. Row labels are base segments
// then "New"; column labels are current segments then "Lost". Cells[i][j] is
// the metric of entities moving from row i to column j.
type Matrix struct {
	Metric   string
	RowLabel []string
	ColLabel []string
	Cells    [][]float64
	TotalOut []float64 // per row
	TotalIn  []float64 // per column, plus the grand total at the end
}

// MovementMatrix builds the matrix. Segment-to-segment and New cells use
// current-period values; Lost cells use base-period values. The New/Lost cell
// is always 0.
func MovementMatrix(s *domain.Snapshot, metric string) Matrix {
	baseSegs := s.BaseSegments()
	currSegs := s.CurrentSegments()

	m := Matrix{
		Metric:   metric,
		RowLabel: append(append([]string(nil), baseSegs...), MatrixNew),
		ColLabel: append(append([]string(nil), currSegs...), MatrixLost),
	}
	m.Cells = make([][]float64, len(m.RowLabel))
	for i := range m.Cells {
		m.Cells[i] = make([]float64, len(m.ColLabel))
	}

	rowOf := indexOf(baseSegs)
	colOf := indexOf(currSegs)
	newRow, lostCol := len(baseSegs), len(currSegs)

	// Group rows per cell so each cell sums its own subset in snapshot order.
	groups := make(map[[2]int][]domain.SnapshotRow)
	for _, r := range s.Rows {
		i, j := newRow, lostCol
		if r.InBase() {
			i = rowOf[r.BaseSegment]
		}
		if r.InCurrent() {
			j = colOf[r.CurrentSegment]
		}
		if i == newRow && j == lostCol {
			continue
		}
		groups[[2]int{i, j}] = append(groups[[2]int{i, j}], r)
	}
	for k, rows := range groups {
		p := domain.PeriodCurrent
		if k[1] == lostCol {
			p = domain.PeriodBase
		}
		m.Cells[k[0]][k[1]] = CalculateMetric(s, rows, p, metric)
	}

	m.TotalOut = make([]float64, len(m.RowLabel))
	for i, row := range m.Cells {
		for _, v := range row {
			m.TotalOut[i] += v
		}
	}
	m.TotalIn = make([]float64, len(m.ColLabel)+1)
	for i, row := range m.Cells {
		for j, v := range row {
			m.TotalIn[j] += v
		}
		m.TotalIn[len(m.ColLabel)] += m.TotalOut[i]
	}
	return m
}

// GrandTotal returns the sum of every cell.
func (m Matrix) GrandTotal() float64 {
	return m.TotalIn[len(m.TotalIn)-1]
}

// Table renders the matrix with a Total Out column and a Total In row.
func (m Matrix) Table() table.Table {
	cols := append([]string{MatrixCorner}, m.ColLabel...)
	t := table.New(append(cols, MatrixTotalOut)...)
	for i, label := range m.RowLabel {
		cells := make([]any, 0, len(m.ColLabel)+2)
		cells = append(cells, label)
		for _, v := range m.Cells[i] {
			cells = append(cells, v)
		}
		t.Append(append(cells, m.TotalOut[i])...)
	}
	total := make([]any, 0, len(m.TotalIn)+1)
	total = append(total, MatrixTotalIn)
	for _, v := range m.TotalIn {
		total = append(total, v)
	}
	t.Append(total...)
	return t
}

func indexOf(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}

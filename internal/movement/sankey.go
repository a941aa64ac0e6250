package movement

import (
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/table"
)

// Sankey node labels for the system source and sink.
const (
	NodeNewSystem  = "New (System)"
	NodeLostSystem = "Lost (System)"
)

// Flow is one edge between node indices.
type Flow struct {
	Source int
	Target int
	Value  float64
}

// Sankey is a node list plus the nonzero flows between them.
type Sankey struct {
	Metric string
	Labels []string
	Flows  []Flow
}

// SankeyFlows lists base nodes "X (Base)", current nodes "X (Current)", then
// the New and Lost system nodes. Flows are emitted per base segment (to each
// current segment, then to Lost), then from New to each current segment.
// Zero-valued flows are omitted.
func SankeyFlows(s *domain.Snapshot, metric string) Sankey {
	m := MovementMatrix(s, metric)
	baseN := len(m.RowLabel) - 1
	currN := len(m.ColLabel) - 1

	out := Sankey{Metric: metric}
	for _, seg := range m.RowLabel[:baseN] {
		out.Labels = append(out.Labels, seg+" (Base)")
	}
	for _, seg := range m.ColLabel[:currN] {
		out.Labels = append(out.Labels, seg+" (Current)")
	}
	newNode := len(out.Labels)
	lostNode := newNode + 1
	out.Labels = append(out.Labels, NodeNewSystem, NodeLostSystem)

	emit := func(src, dst int, v float64) {
		if v != 0 {
			out.Flows = append(out.Flows, Flow{Source: src, Target: dst, Value: v})
		}
	}
	for i := 0; i < baseN; i++ {
		for j := 0; j < currN; j++ {
			emit(i, baseN+j, m.Cells[i][j])
		}
		emit(i, lostNode, m.Cells[i][currN])
	}
	for j := 0; j < currN; j++ {
		emit(newNode, baseN+j, m.Cells[baseN][j])
	}
	return out
}

// Table renders one row per flow with node labels.
func (k Sankey) Table() table.Table {
	t := table.New("Source", "Target", "Value")
	for _, f := range k.Flows {
		t.Append(k.Labels[f.Source], k.Labels[f.Target], f.Value)
	}
	return t
}

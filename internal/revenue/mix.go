package revenue

import (
	"math"
	"sort"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/table"
)

// ProductShare is one product's current revenue and its share of the total.
type ProductShare struct {
	Product    string
	Revenue    float64
	Percentage float64 // rounded to 2 decimals
}

// ProductMix returns current-period revenue per product for entities in the
// given current segment, or every entity present in the current period when
// segment is empty. Sorted by revenue descending. Percentages are 0 when the
// total is 0.
func ProductMix(s *domain.Snapshot, marker, segment string) []ProductShare {
	cols := Select(s, marker)
	if cols.Empty() {
		return nil
	}

	var total float64
	out := make([]ProductShare, 0, len(cols.Indices))
	for k, idx := range cols.Indices {
		var rev float64
		for _, r := range s.Rows {
			if !r.InCurrent() || (segment != "" && r.CurrentSegment != segment) {
				continue
			}
			rev += r.Current[idx]
		}
		total += rev
		out = append(out, ProductShare{Product: cols.Product(cols.Names[k]), Revenue: rev})
	}
	for i := range out {
		if total != 0 {
			out[i].Percentage = round2(out[i].Revenue / total * 100)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return out
}

// ProductMixTable renders a product mix.
func ProductMixTable(mix []ProductShare) table.Table {
	t := table.New("Product", "Revenue", "Percentage")
	for _, p := range mix {
		t.Append(p.Product, p.Revenue, p.Percentage)
	}
	return t
}

// SegmentProducts is the current segment x product revenue matrix.
type SegmentProducts struct {
	Segments []string
	Products []string
	Revenue  [][]float64 // [segment][product]
}

// SegmentProductMatrix sums current-period revenue per current segment and product.
func SegmentProductMatrix(s *domain.Snapshot, marker string) SegmentProducts {
	cols := Select(s, marker)
	m := SegmentProducts{Segments: s.CurrentSegments()}
	for _, name := range cols.Names {
		m.Products = append(m.Products, cols.Product(name))
	}

	rowOf := make(map[string]int, len(m.Segments))
	m.Revenue = make([][]float64, len(m.Segments))
	for i, seg := range m.Segments {
		rowOf[seg] = i
		m.Revenue[i] = make([]float64, len(cols.Indices))
	}
	for _, r := range s.Rows {
		if !r.InCurrent() {
			continue
		}
		row := m.Revenue[rowOf[r.CurrentSegment]]
		for k, idx := range cols.Indices {
			row[k] += r.Current[idx]
		}
	}
	return m
}

// Table renders the matrix with one row per segment.
func (m SegmentProducts) Table() table.Table {
	t := table.New(append([]string{"Segment"}, m.Products...)...)
	for i, seg := range m.Segments {
		cells := make([]any, 0, len(m.Products)+1)
		cells = append(cells, seg)
		for _, v := range m.Revenue[i] {
			cells = append(cells, v)
		}
		t.Append(cells...)
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

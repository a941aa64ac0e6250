package pipeline

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/period"
	"segment-flow-lab/internal/storage/csvdir"
	"segment-flow-lab/internal/storage/memory"
	"segment-flow-lab/internal/table"
)

// Fixture products. Each gets a <product>_rev_wf and a <product>_vol_wf metric.
var FixtureProducts = []string{"A1", "A2", "B1", "B2", "B3", "C1"}

type segmentProfile struct {
	code      string
	size      float64 // share of base entities
	stability float64 // probability of staying
	growth    float64 // yearly revenue growth factor
	avgRev    float64 // mean monthly revenue
}

var segmentProfiles = []segmentProfile{
	{"SEG01", 0.15, 0.95, 1.05, 50000},
	{"SEG02", 0.12, 0.93, 1.03, 45000},
	{"SEG03", 0.10, 0.90, 1.02, 40000},
	{"SEG04", 0.08, 0.88, 1.08, 35000},
	{"SEG05", 0.07, 0.85, 1.10, 30000},
	{"SEG06", 0.06, 0.82, 0.98, 28000},
	{"SEG07", 0.05, 0.80, 0.95, 25000},
	{"SEG08", 0.05, 0.88, 1.01, 22000},
	{"SEG09", 0.04, 0.75, 1.15, 20000},
	{"SEG10", 0.04, 0.78, 1.00, 18000},
	{"SEG11", 0.03, 0.70, 1.20, 15000},
	{"SEG12", 0.03, 0.85, 0.97, 14000},
	{"SEG13", 0.03, 0.88, 1.02, 12000},
	{"SEG14", 0.02, 0.65, 1.25, 10000},
	{"SEG15", 0.02, 0.90, 1.01, 9000},
	{"SEG16", 0.02, 0.72, 0.92, 8000},
	{"SEG17", 0.02, 0.80, 1.05, 7000},
	{"SEG18", 0.01, 0.60, 1.30, 5000},
	{"SEG19", 0.01, 0.85, 1.00, 4000},
	{"SEG20", 0.01, 0.50, 0.85, 3000},
}

const (
	churnBand = 0.03 // probability mass, after stability, of leaving the system
	newShare  = 0.05 // new entities per current month, relative to base size
)

// FixtureConfig shapes a generated dataset.
type FixtureConfig struct {
	Entities      int
	Seed          uint64
	BaseMonth     int
	CurrentMonths []int
	MetricsStart  int
	MetricsEnd    int
}

// DefaultFixtureConfig returns the demo dataset shape.
func DefaultFixtureConfig() FixtureConfig {
	return FixtureConfig{
		Entities:      2000,
		Seed:          42,
		BaseMonth:     202406,
		CurrentMonths: []int{202411, 202512},
		MetricsStart:  202306,
		MetricsEnd:    202512,
	}
}

// Fixtures is a generated dataset in loader form.
type Fixtures struct {
	Base    table.Table
	Current map[int]table.Table
	Metrics table.Table
}

// GenerateFixtures builds a deterministic dataset: the same config always
// yields the same tables.
func GenerateFixtures(cfg FixtureConfig, segCols config.SegmentColumns, metricCols config.MetricsColumns) (*Fixtures, error) {
	if cfg.Entities < 1 {
		return nil, errors.New("fixture entity count must be >= 1")
	}
	if !period.Valid(cfg.BaseMonth) {
		return nil, fmt.Errorf("invalid base month %d", cfg.BaseMonth)
	}
	months, err := period.Range(cfg.MetricsStart, cfg.MetricsEnd)
	if err != nil {
		return nil, fmt.Errorf("metrics range: %w", err)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	g := &generator{rng: rng, segCols: segCols}

	ids := make([]string, cfg.Entities)
	for i := range ids {
		ids[i] = entityID(i + 1)
	}

	f := &Fixtures{Current: make(map[int]table.Table, len(cfg.CurrentMonths))}
	baseSeg := g.assignBase(ids)
	f.Base = g.assignmentTable(ids, baseSeg, cfg.BaseMonth)

	segmentOf := make(map[string]string, len(ids))
	for i, id := range ids {
		segmentOf[id] = baseSeg[i]
	}
	all := append([]string(nil), ids...)
	for _, m := range cfg.CurrentMonths {
		if !period.Valid(m) {
			return nil, fmt.Errorf("invalid current month %d", m)
		}
		curIDs, curSeg := g.moveCurrent(ids, baseSeg, cfg.Entities)
		f.Current[m] = g.assignmentTable(curIDs, curSeg, m)
		for _, id := range curIDs[len(curIDs)-newCount(cfg.Entities):] {
			if _, ok := segmentOf[id]; !ok {
				all = append(all, id)
				segmentOf[id] = ""
			}
		}
	}

	f.Metrics = g.metricsTable(all, segmentOf, months, cfg.MetricsStart, metricCols)
	return f, nil
}

// Sources exposes the dataset as in-memory sources.
func (f *Fixtures) Sources() (*memory.SegmentSource, *memory.MetricsSource) {
	segs := memory.NewSegmentSource(f.Base)
	for m, t := range f.Current {
		segs.AddCurrent(m, t)
	}
	return segs, &memory.MetricsSource{Metrics: f.Metrics}
}

// WriteTo writes the dataset as CSV files into d.
func (f *Fixtures) WriteTo(d *csvdir.Dir) error {
	if err := d.WriteBase(f.Base); err != nil {
		return err
	}
	for m, t := range f.Current {
		if err := d.WriteCurrent(m, t); err != nil {
			return err
		}
	}
	return d.WriteMetrics(f.Metrics)
}

type generator struct {
	rng     *rand.Rand
	segCols config.SegmentColumns
}

func entityID(n int) string {
	return fmt.Sprintf("E%07d", n)
}

func newCount(baseEntities int) int {
	return int(float64(baseEntities) * newShare)
}

// assignBase fills each segment to its size share, then scatters the remainder.
func (g *generator) assignBase(ids []string) []string {
	order := g.rng.Perm(len(ids))
	segs := make([]string, len(ids))
	next := 0
	for _, p := range segmentProfiles {
		n := int(float64(len(ids)) * p.size)
		for i := 0; i < n && next < len(order); i++ {
			segs[order[next]] = p.code
			next++
		}
	}
	for ; next < len(order); next++ {
		segs[order[next]] = segmentProfiles[g.rng.IntN(len(segmentProfiles))].code
	}
	return segs
}

// moveCurrent keeps, drops or moves every base entity, then appends new ones.
// New entity ids continue after the base range, so every current month shares them.
func (g *generator) moveCurrent(ids, baseSeg []string, baseEntities int) ([]string, []string) {
	var outIDs, outSeg []string
	for i, id := range ids {
		ord := ordinalOf(baseSeg[i])
		p := segmentProfiles[ord-1]
		r := g.rng.Float64()
		switch {
		case r < p.stability:
			outIDs, outSeg = append(outIDs, id), append(outSeg, p.code)
		case r < p.stability+churnBand:
			// lost to the system
		default:
			outIDs, outSeg = append(outIDs, id), append(outSeg, g.neighbour(ord))
		}
	}

	weights := make([]float64, len(segmentProfiles))
	for i, p := range segmentProfiles {
		weights[i] = p.growth
	}
	for i := 0; i < newCount(baseEntities); i++ {
		outIDs = append(outIDs, entityID(len(ids)+1+i))
		outSeg = append(outSeg, segmentProfiles[g.pick(weights)].code)
	}
	return outIDs, outSeg
}

// neighbour picks a different segment, favouring those within two tiers.
func (g *generator) neighbour(ord int) string {
	weights := make([]float64, len(segmentProfiles))
	for i := range weights {
		weights[i] = 0.10
	}
	for i := max(0, ord-2); i < min(len(weights), ord+3); i++ {
		weights[i] = 0.15
	}
	weights[ord-1] = 0
	return segmentProfiles[g.pick(weights)].code
}

func (g *generator) pick(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := g.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

func (g *generator) assignmentTable(ids, segs []string, month int) table.Table {
	t := table.New(g.segCols.Entity, g.segCols.Month, g.segCols.Segment)
	for i, id := range ids {
		t.Append(id, month, segs[i])
	}
	return t
}

func (g *generator) metricsTable(ids []string, segmentOf map[string]string, months []int, start int, cols config.MetricsColumns) table.Table {
	header := []string{cols.Month, cols.Entity}
	for _, p := range FixtureProducts {
		header = append(header, p+"_rev_wf", p+"_vol_wf")
	}
	t := table.New(header...)

	for _, id := range ids {
		seg := segmentOf[id]
		if seg == "" {
			seg = segmentProfiles[g.rng.IntN(len(segmentProfiles))].code
		}
		p := segmentProfiles[ordinalOf(seg)-1]
		baseRev := p.avgRev * uniform(g.rng, 0.5, 1.5)

		for _, m := range months {
			monthNum := m % 100
			seasonality := 1 + 0.1*math.Sin(float64(monthNum-1)/12*2*math.Pi)
			elapsed := (m/100-start/100)*12 + monthNum - start%100
			factor := seasonality * math.Pow(p.growth, float64(elapsed)/12) * uniform(g.rng, 0.8, 1.2)

			cells := make([]any, 0, len(header))
			cells = append(cells, m, id)
			for _, prod := range FixtureProducts {
				share := 0.40
				switch prod[0] {
				case 'B':
					share = 0.35 / 2
				case 'C':
					share = 0.25
				}
				rev := baseRev * share * factor
				vol := rev / uniform(g.rng, 50, 150) * uniform(g.rng, 0.9, 1.1)
				cells = append(cells, round2(rev), round2(vol))
			}
			t.Append(cells...)
		}
	}
	return t
}

func ordinalOf(code string) int {
	var n int
	fmt.Sscanf(code, "SEG%d", &n)
	return n
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

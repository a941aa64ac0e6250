package reporting

import (
	"time"

	"segment-flow-lab/internal/cohort"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/orchestrator"
	"segment-flow-lab/internal/revenue"
	"segment-flow-lab/internal/risk"
)

// TopRiskEntities caps the entity risk view.
const TopRiskEntities = 100

// Generator produces reports from analyses.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for one analysis.
func (g *Generator) Generate(a *orchestrator.Analysis) *Report {
	s := a.Snapshot
	counts := s.StatusCounts()

	r := &Report{
		GeneratedAt:  g.now(),
		BaseMonth:    s.BaseMonth,
		CurrentMonth: s.CurrentMonth,
		WindowMonths: s.WindowMonths,
		Metric:       a.Metric,
		CacheHit:     a.CacheHit,
		DataSummary: DataSummary{
			Entities:      s.Len(),
			Retained:      counts[domain.StatusRetained],
			MovedInternal: counts[domain.StatusMovedInternal],
			NewSystem:     counts[domain.StatusNewSystem],
			LostSystem:    counts[domain.StatusLostSystem],
			Metrics:       s.AvailableMetrics(),
		},
		DataQuality: DataQualitySection{Clean: true},
		RiskSummary: RiskSummary{
			EntitiesAnalyzed: len(a.EntityRisk),
			HighEntities:     a.RiskSummary.Entities[domain.RiskHigh],
			MediumEntities:   a.RiskSummary.Entities[domain.RiskMedium],
			LowEntities:      a.RiskSummary.Entities[domain.RiskLow],
			HighSegments:     a.RiskSummary.Segments[domain.RiskHigh],
			MediumSegments:   a.RiskSummary.Segments[domain.RiskMedium],
			LowSegments:      a.RiskSummary.Segments[domain.RiskLow],
		},
	}

	for _, q := range a.Quality {
		r.DataQuality.Rows = append(r.DataQuality.Rows, DataQualityRow{
			Source:        q.Source,
			Duplicates:    len(q.Duplicates),
			EmptySegments: len(q.EmptySegments),
		})
		if !q.Clean() {
			r.DataQuality.Clean = false
		}
	}

	topRisk := a.EntityRisk
	if len(topRisk) > TopRiskEntities {
		topRisk = topRisk[:TopRiskEntities]
	}

	r.Views = []View{
		{Name: "Summary", File: "summary.csv", Table: a.Summary.Table()},
		{Name: "Movement Matrix", File: "movement_matrix.csv", Table: a.Matrix.Table()},
		{Name: "Flows", File: "sankey_flows.csv", Table: a.Sankey.Table()},
		{Name: "Product Mix", File: "product_mix.csv", Table: revenue.ProductMixTable(a.ProductMix)},
		{Name: "Segment-Product Matrix", File: "segment_product_matrix.csv", Table: a.SegmentProducts.Table()},
		{Name: "Cohort Analysis", File: "cohorts.csv", Table: cohort.CohortsTable(a.Cohorts)},
		{Name: "Cohort Revenue", File: "cohort_revenue.csv", Table: cohort.RevenueTable(a.CohortRevenue)},
		{Name: "Entity Risk Scores", File: "entity_risk.csv", Table: risk.EntityTable(topRisk)},
		{Name: "Segment Risk Analysis", File: "segment_risk.csv", Table: risk.SegmentTable(a.SegmentRisk)},
	}
	return r
}

// View returns the named view.
func (r *Report) View(name string) (View, bool) {
	for _, v := range r.Views {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

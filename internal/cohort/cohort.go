// Package cohort groups snapshot entities by base segment and reports how each
// cohort retained, moved and churned between the two periods.
package cohort

import (
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/revenue"
	"segment-flow-lab/internal/table"
)

// Cohort is the movement breakdown of one base segment.
type Cohort struct {
	BaseSegment string
	Size        int
	Retained    int
	MovedUp     int
	MovedDown   int
	Churned     int

	RetentionRate    float64
	ChurnRate        float64
	InternalMoveRate float64
}

// Moved returns the number of entities that changed segment.
func (c Cohort) Moved() int {
	return c.MovedUp + c.MovedDown
}

// IdentifyCohorts returns one cohort per base segment, sorted by segment code.
// A moved entity counts as moved up only when both ordinals are known and the
// current ordinal is lower than the base ordinal; otherwise it moved down.
func IdentifyCohorts(s *domain.Snapshot) []Cohort {
	groups := byBaseSegment(s)
	out := make([]Cohort, 0, len(groups.order))
	for _, seg := range groups.order {
		c := Cohort{BaseSegment: seg}
		baseOrd, baseOK := domain.Ordinal(seg)
		for _, r := range groups.rows[seg] {
			c.Size++
			switch r.Status {
			case domain.StatusRetained:
				c.Retained++
			case domain.StatusLostSystem:
				c.Churned++
			case domain.StatusMovedInternal:
				currOrd, currOK := domain.Ordinal(r.CurrentSegment)
				if baseOK && currOK && currOrd < baseOrd {
					c.MovedUp++
				} else {
					c.MovedDown++
				}
			}
		}
		if c.Size > 0 {
			n := float64(c.Size)
			c.RetentionRate = float64(c.Retained) / n * 100
			c.ChurnRate = float64(c.Churned) / n * 100
			c.InternalMoveRate = float64(c.Moved()) / n * 100
		}
		out = append(out, c)
	}
	return out
}

// CohortsTable renders cohorts in display form.
func CohortsTable(cohorts []Cohort) table.Table {
	t := table.New("Base Segment", "Cohort Size", "Retained", "Moved Up", "Moved Down",
		"Churned", "Retention Rate", "Churn Rate", "Internal Move Rate")
	for _, c := range cohorts {
		t.Append(c.BaseSegment, c.Size, c.Retained, c.MovedUp, c.MovedDown,
			c.Churned, c.RetentionRate, c.ChurnRate, c.InternalMoveRate)
	}
	return t
}

// Revenue is one cohort's revenue movement.
type Revenue struct {
	Cohort         string
	Entities       int
	BaseRevenue    float64
	CurrentRevenue float64
	Change         float64
	ChangePct      float64 // 0 when base revenue is not positive
	AvgBase        float64
	AvgCurrent     float64
}

// CohortRevenue sums every revenue metric (selected by marker) per base-segment
// cohort for both periods.
func CohortRevenue(s *domain.Snapshot, marker string) []Revenue {
	cols := revenue.Select(s, marker)
	groups := byBaseSegment(s)
	out := make([]Revenue, 0, len(groups.order))
	for _, seg := range groups.order {
		rows := groups.rows[seg]
		r := Revenue{
			Cohort:         seg,
			Entities:       len(rows),
			BaseRevenue:    cols.Sum(rows, domain.PeriodBase),
			CurrentRevenue: cols.Sum(rows, domain.PeriodCurrent),
		}
		r.Change = r.CurrentRevenue - r.BaseRevenue
		r.ChangePct = revenue.ChangePct(r.BaseRevenue, r.CurrentRevenue)
		if r.Entities > 0 {
			r.AvgBase = r.BaseRevenue / float64(r.Entities)
			r.AvgCurrent = r.CurrentRevenue / float64(r.Entities)
		}
		out = append(out, r)
	}
	return out
}

// RevenueTable renders cohort revenue in display form.
func RevenueTable(revs []Revenue) table.Table {
	t := table.New("Cohort", "Entities", "Base Revenue", "Current Revenue", "Revenue Change",
		"Revenue Change %", "Avg Revenue per Entity (Base)", "Avg Revenue per Entity (Current)")
	for _, r := range revs {
		t.Append(r.Cohort, r.Entities, r.BaseRevenue, r.CurrentRevenue, r.Change,
			r.ChangePct, r.AvgBase, r.AvgCurrent)
	}
	return t
}

type grouped struct {
	order []string
	rows  map[string][]domain.SnapshotRow
}

func byBaseSegment(s *domain.Snapshot) grouped {
	g := grouped{order: s.BaseSegments(), rows: make(map[string][]domain.SnapshotRow)}
	for _, r := range s.Rows {
		if r.InBase() {
			g.rows[r.BaseSegment] = append(g.rows[r.BaseSegment], r)
		}
	}
	return g
}

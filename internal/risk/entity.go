// Package risk scores entities and segments for churn risk. Scores are
// additive point factors in [0, 100], bucketed with domain.RiskLevelFor.
package risk

import (
	"fmt"
	"sort"
	"strings"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/revenue"
	"segment-flow-lab/internal/table"
)

// Entity factor points and thresholds.
const (
	declineSevere   = -20.0 // pct
	declineModerate = -10.0

	lowRevenue          = 5000.0
	belowAverageRevenue = 10000.0

	bottomTierOrdinal = 16
	lowerTierOrdinal  = 11
)

// NoFactors is rendered when an entity collected no risk factor.
const NoFactors = "None"

// EntityScore is one entity's churn risk.
type EntityScore struct {
	EntityID       string
	CurrentSegment string
	CurrentRevenue float64
	Score          int
	Level          domain.RiskLevel
	Factors        []string
}

// FactorList joins the factors for display.
func (e EntityScore) FactorList() string {
	if len(e.Factors) == 0 {
		return NoFactors
	}
	return strings.Join(e.Factors, ", ")
}

// ChurnRiskScores scores every entity present in the current period. Revenue
// is the sum of the metrics selected by marker. Results are sorted by score
// descending; ties keep snapshot order.
func ChurnRiskScores(s *domain.Snapshot, marker string) []EntityScore {
	cols := revenue.Select(s, marker)
	var out []EntityScore
	for _, r := range s.Rows {
		if !r.InCurrent() {
			continue
		}
		out = append(out, scoreEntity(r, cols))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func scoreEntity(r domain.SnapshotRow, cols revenue.Columns) EntityScore {
	baseRev := cols.Total(r, domain.PeriodBase)
	currRev := cols.Total(r, domain.PeriodCurrent)
	e := EntityScore{EntityID: r.EntityID, CurrentSegment: r.CurrentSegment, CurrentRevenue: currRev}

	add := func(points int, factor string) {
		e.Score += points
		e.Factors = append(e.Factors, factor)
	}

	if baseRev > 0 {
		pct := (currRev - baseRev) / baseRev * 100
		declined := fmt.Sprintf("Revenue declined %.1f%%", pct)
		switch {
		case pct < declineSevere:
			add(40, declined)
		case pct < declineModerate:
			add(25, declined)
		case pct < 0:
			add(10, declined)
		}
	}

	switch {
	case currRev < lowRevenue:
		add(20, "Low revenue")
	case currRev < belowAverageRevenue:
		add(10, "Below average revenue")
	}

	currOrd, currOK := domain.Ordinal(r.CurrentSegment)
	if currOK {
		switch {
		case currOrd >= bottomTierOrdinal:
			add(20, "In bottom-tier segment")
		case currOrd >= lowerTierOrdinal:
			add(10, "In lower-tier segment")
		}
	}

	if r.Status == domain.StatusMovedInternal {
		baseOrd, baseOK := domain.Ordinal(r.BaseSegment)
		if baseOK && currOK && currOrd > baseOrd {
			add(20, "Moved to lower segment")
		}
	}

	e.Level = domain.RiskLevelFor(e.Score)
	return e
}

// EntityTable renders entity scores.
func EntityTable(scores []EntityScore) table.Table {
	t := table.New("entity", "current_segment", "current_revenue", "risk_score", "risk_level", "risk_factors")
	for _, e := range scores {
		t.Append(e.EntityID, e.CurrentSegment, e.CurrentRevenue, e.Score, string(e.Level), e.FactorList())
	}
	return t
}

package risk

import (
	"math"
	"sort"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/revenue"
	"segment-flow-lab/internal/table"
)

const atRiskSegmentOrdinal = 15

// SegmentScore is one current segment's aggregate risk. ChurnRate and
// RevenueChange are percentages; Score is computed from their unrounded values.
type SegmentScore struct {
	Segment       string
	CurrentSize   int
	ChurnRate     float64
	RevenueChange float64
	Score         int
	Level         domain.RiskLevel
}

// SegmentRisk scores every current segment. Churn is measured over the
// entities whose base segment has the same code; revenue change compares
// their base revenue with the current revenue of the segment's current
// members. Sorted by score descending; ties keep segment order.
func SegmentRisk(s *domain.Snapshot, marker string) []SegmentScore {
	cols := revenue.Select(s, marker)

	var out []SegmentScore
	for _, seg := range s.CurrentSegments() {
		var current, base []domain.SnapshotRow
		churned := 0
		for _, r := range s.Rows {
			if r.CurrentSegment == seg {
				current = append(current, r)
			}
			if r.BaseSegment == seg {
				base = append(base, r)
				if r.Status == domain.StatusLostSystem {
					churned++
				}
			}
		}

		sc := SegmentScore{Segment: seg, CurrentSize: len(current)}
		if len(base) > 0 {
			sc.ChurnRate = float64(churned) / float64(len(base)) * 100
		}
		sc.RevenueChange = revenue.ChangePct(cols.Sum(base, domain.PeriodBase), cols.Sum(current, domain.PeriodCurrent))

		switch {
		case sc.ChurnRate > 10:
			sc.Score += 40
		case sc.ChurnRate > 5:
			sc.Score += 20
		}
		switch {
		case sc.RevenueChange < -15:
			sc.Score += 40
		case sc.RevenueChange < -5:
			sc.Score += 20
		}
		if ord, ok := domain.Ordinal(seg); ok && ord >= atRiskSegmentOrdinal {
			sc.Score += 20
		}
		sc.Level = domain.RiskLevelFor(sc.Score)
		out = append(out, sc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// SegmentTable renders segment scores with percentages rounded to 2 decimals.
func SegmentTable(scores []SegmentScore) table.Table {
	t := table.New("Segment", "Current Size", "Churn Rate %", "Revenue Change %", "Risk Score", "Risk Level")
	for _, sc := range scores {
		t.Append(sc.Segment, sc.CurrentSize, round2(sc.ChurnRate), round2(sc.RevenueChange), sc.Score, string(sc.Level))
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

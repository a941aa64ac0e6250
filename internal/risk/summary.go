package risk

import "segment-flow-lab/internal/domain"

// Summary counts entities and segments per risk level.
type Summary struct {
	Entities map[domain.RiskLevel]int
	Segments map[domain.RiskLevel]int
}

// Summarize counts levels over entity and segment scores.
func Summarize(entities []EntityScore, segments []SegmentScore) Summary {
	sum := Summary{
		Entities: make(map[domain.RiskLevel]int, 3),
		Segments: make(map[domain.RiskLevel]int, 3),
	}
	for _, e := range entities {
		sum.Entities[e.Level]++
	}
	for _, sc := range segments {
		sum.Segments[sc.Level]++
	}
	return sum
}

package revenue

import (
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/table"
)

// EntityDetail is one entity's segments, status and revenue movement.
type EntityDetail struct {
	EntityID         string
	BaseSegment      string
	CurrentSegment   string
	Status           domain.Status
	BaseRevenue      float64
	CurrentRevenue   float64
	RevenueChange    float64
	RevenueChangePct float64
}

// EntityMetrics looks up one entity. The boolean is false when the entity is
// not in the snapshot.
func EntityMetrics(s *domain.Snapshot, marker, entityID string) (EntityDetail, bool) {
	r, ok := s.Find(entityID)
	if !ok {
		return EntityDetail{}, false
	}
	cols := Select(s, marker)
	d := EntityDetail{
		EntityID:       r.EntityID,
		BaseSegment:    r.BaseSegment,
		CurrentSegment: r.CurrentSegment,
		Status:         r.Status,
		BaseRevenue:    cols.Total(r, domain.PeriodBase),
		CurrentRevenue: cols.Total(r, domain.PeriodCurrent),
	}
	d.RevenueChange = d.CurrentRevenue - d.BaseRevenue
	d.RevenueChangePct = ChangePct(d.BaseRevenue, d.CurrentRevenue)
	return d, true
}

// Table renders the detail as a single-row table.
func (d EntityDetail) Table() table.Table {
	t := table.New("entity_id", "base_segment", "current_segment", "status",
		"base_total_revenue", "current_total_revenue", "revenue_change", "revenue_change_pct")
	t.Append(d.EntityID, nullable(d.BaseSegment), nullable(d.CurrentSegment), string(d.Status),
		d.BaseRevenue, d.CurrentRevenue, d.RevenueChange, d.RevenueChangePct)
	return t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

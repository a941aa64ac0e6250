package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/storage"
	"segment-flow-lab/internal/table"
)

// SegmentSource serves assignment tables held in memory.
type SegmentSource struct {
	mu      sync.RWMutex
	base    table.Table
	current map[int]table.Table
}

// NewSegmentSource creates a source with the given base table.
func NewSegmentSource(base table.Table) *SegmentSource {
	return &SegmentSource{base: base, current: make(map[int]table.Table)}
}

// AddCurrent registers the assignments for a current month.
func (s *SegmentSource) AddCurrent(month int, t table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[month] = t
}

// LoadBase returns the base table.
func (s *SegmentSource) LoadBase(_ context.Context) (table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base, nil
}

// LoadCurrent returns the table for month, or *domain.NotFoundError.
func (s *SegmentSource) LoadCurrent(_ context.Context, month int) (table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.current[month]
	if !ok {
		return table.Table{}, &domain.NotFoundError{
			Resource: fmt.Sprintf("current assignments for %d", month),
			Err:      storage.ErrNotFound,
		}
	}
	return t, nil
}

// CurrentMonths lists registered months, ascending.
func (s *SegmentSource) CurrentMonths(_ context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	months := make([]int, 0, len(s.current))
	for m := range s.current {
		months = append(months, m)
	}
	sort.Ints(months)
	return months, nil
}

// MetricsSource serves a fixed metrics table.
type MetricsSource struct {
	Metrics table.Table
}

// LoadMetrics returns the metrics table.
func (s *MetricsSource) LoadMetrics(_ context.Context) (table.Table, error) {
	return s.Metrics, nil
}

var (
	_ storage.SegmentSource = (*SegmentSource)(nil)
	_ storage.MetricsSource = (*MetricsSource)(nil)
)

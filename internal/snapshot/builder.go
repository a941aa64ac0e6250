// Package snapshot builds the joined, status-classified comparison of a base
// and a current period.
package snapshot

import (
	"context"
	"fmt"
	"log"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"segment-flow-lab/internal/cache"
	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/metrics"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/table"
)

// Sources named in data errors.
const (
	SourceBase    = "base assignments"
	SourceCurrent = "current assignments"
)

// Options configures a Builder.
type Options struct {
	SegmentColumns config.SegmentColumns
	Aggregator     *metrics.Aggregator
	Cache          *cache.Cache // nil = no caching
	Logger         *log.Logger  // nil = log.Default()
}

// Builder builds snapshots, reusing cached ones keyed by (base, current) month.
type Builder struct {
	cols       config.SegmentColumns
	aggregator *metrics.Aggregator
	cache      *cache.Cache
	logger     *log.Logger
}

// Result is a built snapshot with the findings gathered while building it.
type Result struct {
	Snapshot *domain.Snapshot
	Quality  []Quality // base then current; nil on a cache hit
	CacheHit bool
}

// NewBuilder creates a new snapshot builder.
func NewBuilder(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := opts.Cache
	if c == nil {
		c = cache.Disabled()
	}
	return &Builder{cols: opts.SegmentColumns, aggregator: opts.Aggregator, cache: c, logger: logger}
}

// Build joins base and current assignments with their trailing-window metrics.
// The months are read from the first row of each assignment table.
func (b *Builder) Build(ctx context.Context, base, current, metricsTable table.Table) (*domain.Snapshot, error) {
	res, err := b.BuildResult(ctx, base, current, metricsTable)
	if err != nil {
		return nil, err
	}
	return res.Snapshot, nil
}

// BuildResult is Build that also reports data-quality findings.
func (b *Builder) BuildResult(ctx context.Context, base, current, metricsTable table.Table) (*Result, error) {
	baseMonth, err := Month(base, b.cols, SourceBase)
	if err != nil {
		return nil, err
	}
	currentMonth, err := Month(current, b.cols, SourceCurrent)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.Tracer().Start(ctx, "snapshot.Build")
	span.SetAttributes(attribute.Int("base_month", baseMonth), attribute.Int("current_month", currentMonth))
	defer span.End()

	window := b.aggregator.WindowMonths()
	if cached, ok := b.cache.LoadSnapshot(ctx, baseMonth, currentMonth, window); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return &Result{Snapshot: cached, CacheHit: true}, nil
	}

	timer := observability.StartTimer("snapshot", nil)

	baseRows, baseQ, err := ParseAssignments(base, b.cols, SourceBase)
	if err != nil {
		return nil, err
	}
	currentRows, currentQ, err := ParseAssignments(current, b.cols, SourceCurrent)
	if err != nil {
		return nil, err
	}
	b.warn(baseQ)
	b.warn(currentQ)

	baseAgg, err := b.aggregator.Aggregate(ctx, metricsTable, baseMonth)
	if err != nil {
		return nil, fmt.Errorf("aggregate base metrics: %w", err)
	}
	currentAgg, err := b.aggregator.Aggregate(ctx, metricsTable, currentMonth)
	if err != nil {
		return nil, fmt.Errorf("aggregate current metrics: %w", err)
	}

	snap := Join(baseRows, currentRows, baseAgg, currentAgg)
	snap.BaseMonth = baseMonth
	snap.CurrentMonth = currentMonth
	snap.WindowMonths = window

	elapsed := timer.Stop()
	counts := snap.StatusCounts()
	statusCounts := make(map[string]int, len(counts))
	for s, n := range counts {
		statusCounts[string(s)] = n
	}
	observability.RecordSnapshot(statusCounts)
	b.logger.Printf("[snapshot] %d vs %d: %d entities (retained=%d moved=%d new=%d lost=%d) in %s",
		baseMonth, currentMonth, snap.Len(),
		counts[domain.StatusRetained], counts[domain.StatusMovedInternal],
		counts[domain.StatusNewSystem], counts[domain.StatusLostSystem], elapsed)

	b.cache.SaveSnapshot(ctx, snap)
	return &Result{Snapshot: snap, Quality: []Quality{baseQ, currentQ}}, nil
}

// Join performs the full outer join of base and current assignments on entity
// id, classifies each row and attaches zero-filled metric vectors. Rows are
// ordered by entity id. Months are left for the caller to set.
func Join(base, current []domain.SegmentAssignment, baseAgg, currentAgg *domain.AggregatedMetrics) *domain.Snapshot {
	segments := make(map[string]*[2]string, len(base)+len(current))
	for _, a := range base {
		segments[a.EntityID] = &[2]string{a.SegmentCode, ""}
	}
	for _, a := range current {
		if s, ok := segments[a.EntityID]; ok {
			s[1] = a.SegmentCode
		} else {
			segments[a.EntityID] = &[2]string{"", a.SegmentCode}
		}
	}

	ids := make([]string, 0, len(segments))
	for id := range segments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := metricNames(baseAgg, currentAgg)
	baseVals := alignedValues(baseAgg, names)
	currentVals := alignedValues(currentAgg, names)

	snap := &domain.Snapshot{MetricNames: names, Rows: make([]domain.SnapshotRow, len(ids))}
	for i, id := range ids {
		seg := segments[id]
		snap.Rows[i] = domain.SnapshotRow{
			EntityID:       id,
			BaseSegment:    seg[0],
			CurrentSegment: seg[1],
			Status:         domain.ClassifyStatus(seg[0], seg[1]),
			Base:           valuesFor(baseVals, id, len(names)),
			Current:        valuesFor(currentVals, id, len(names)),
		}
	}
	return snap
}

func (b *Builder) warn(q Quality) {
	if len(q.Duplicates) > 0 {
		observability.RecordDataQualityWarning("duplicate_entity", len(q.Duplicates))
		b.logger.Printf("[snapshot] WARN %s: %d duplicate entities, first occurrence kept (e.g. %s)",
			q.Source, len(q.Duplicates), q.Duplicates[0])
	}
	if len(q.EmptySegments) > 0 {
		observability.RecordDataQualityWarning("empty_segment", len(q.EmptySegments))
		b.logger.Printf("[snapshot] WARN %s: %d entities with empty segment code treated as absent (e.g. %s)",
			q.Source, len(q.EmptySegments), q.EmptySegments[0])
	}
}

// metricNames returns base names followed by any current-only names.
func metricNames(aggs ...*domain.AggregatedMetrics) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, a := range aggs {
		if a == nil {
			continue
		}
		for _, n := range a.MetricNames {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	return names
}

// alignedValues re-indexes an aggregate's rows onto names.
func alignedValues(a *domain.AggregatedMetrics, names []string) map[string][]float64 {
	if a == nil {
		return nil
	}
	pos := make([]int, len(a.MetricNames))
	for i, n := range a.MetricNames {
		for j, m := range names {
			if n == m {
				pos[i] = j
				break
			}
		}
	}

	out := make(map[string][]float64, len(a.Rows))
	for _, r := range a.Rows {
		vals := make([]float64, len(names))
		for i, v := range r.Values {
			vals[pos[i]] = v
		}
		out[r.EntityID] = vals
	}
	return out
}

func valuesFor(vals map[string][]float64, id string, n int) []float64 {
	if v, ok := vals[id]; ok {
		return v
	}
	return make([]float64, n)
}

// Package orchestrator runs one analysis request end to end.
// It coordinates: load sources → snapshot → movement, cohort, revenue and risk views
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"segment-flow-lab/internal/cache"
	"segment-flow-lab/internal/cohort"
	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/metrics"
	"segment-flow-lab/internal/movement"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/revenue"
	"segment-flow-lab/internal/risk"
	"segment-flow-lab/internal/snapshot"
	"segment-flow-lab/internal/storage"
)

// Analysis status labels recorded in metrics.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
)

// Orchestrator coordinates snapshot building and the downstream views.
// It holds no per-request state; concurrent requests share only the cache.
type Orchestrator struct {
	settings config.Settings
	segments storage.SegmentSource
	metrics  storage.MetricsSource
	builder  *snapshot.Builder
	logger   *log.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	Settings config.Settings

	// Required sources
	Segments storage.SegmentSource
	Metrics  storage.MetricsSource

	Cache  *cache.Cache // nil = no caching
	Logger *log.Logger  // nil = log.Default()
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	agg := metrics.NewAggregator(metrics.Options{
		Columns:      opts.Settings.MetricsColumns,
		WindowMonths: opts.Settings.WindowMonths,
		Cache:        opts.Cache,
		Logger:       logger,
	})
	return &Orchestrator{
		settings: opts.Settings,
		segments: opts.Segments,
		metrics:  opts.Metrics,
		builder: snapshot.NewBuilder(snapshot.Options{
			SegmentColumns: opts.Settings.SegmentColumns,
			Aggregator:     agg,
			Cache:          opts.Cache,
			Logger:         logger,
		}),
		logger: logger,
	}
}

// Analysis holds every view derived from one snapshot.
type Analysis struct {
	Snapshot *domain.Snapshot
	Quality  []snapshot.Quality
	CacheHit bool
	Metric   string
	Marker   string

	Summary movement.Summary
	Matrix  movement.Matrix
	Sankey  movement.Sankey

	Cohorts       []cohort.Cohort
	CohortRevenue []cohort.Revenue

	ProductMix      []revenue.ProductShare
	SegmentProducts revenue.SegmentProducts

	EntityRisk  []risk.EntityScore
	SegmentRisk []risk.SegmentScore
	RiskSummary risk.Summary

	Duration time.Duration
}

// Entity looks up one entity's revenue detail. The boolean is false when the
// entity is not in the snapshot.
func (a *Analysis) Entity(entityID string) (revenue.EntityDetail, bool) {
	return revenue.EntityMetrics(a.Snapshot, a.Marker, entityID)
}

// LookupEntity is Entity for callers that want an error: a missing entity
// wraps domain.ErrEntityNotFound.
func (a *Analysis) LookupEntity(entityID string) (revenue.EntityDetail, error) {
	d, ok := a.Entity(entityID)
	if !ok {
		return d, fmt.Errorf("%w: %s in snapshot %d/%d", domain.ErrEntityNotFound,
			entityID, a.Snapshot.BaseMonth, a.Snapshot.CurrentMonth)
	}
	return d, nil
}

// CurrentMonths lists the current months the segment source can serve.
func (o *Orchestrator) CurrentMonths(ctx context.Context) ([]int, error) {
	months, err := o.segments.CurrentMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list current months: %w", err)
	}
	return months, nil
}

// Snapshot loads the base, current and metrics tables and builds the snapshot
// for currentMonth. A missing current period is returned as the source's
// *domain.NotFoundError, unwrapped.
func (o *Orchestrator) Snapshot(ctx context.Context, currentMonth int) (*snapshot.Result, error) {
	base, err := o.segments.LoadBase(ctx)
	if err != nil {
		return nil, fmt.Errorf("load base assignments: %w", err)
	}
	current, err := o.segments.LoadCurrent(ctx, currentMonth)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("load current assignments %d: %w", currentMonth, err)
	}
	metricsTable, err := o.metrics.LoadMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	return o.builder.BuildResult(ctx, base, current, metricsTable)
}

// Analyze builds the snapshot for currentMonth and runs every view over it,
// sequentially. metric selects the summary/matrix/flow measure; empty means
// entity count.
func (o *Orchestrator) Analyze(ctx context.Context, currentMonth int, metric string) (*Analysis, error) {
	if metric == "" {
		metric = movement.MetricCount
	}
	ctx, span := observability.Tracer().Start(ctx, "orchestrator.Analyze")
	span.SetAttributes(attribute.Int("current_month", currentMonth), attribute.String("metric", metric))
	defer span.End()

	timer := observability.StartTimer("analysis", nil)

	res, err := o.Snapshot(ctx, currentMonth)
	if err != nil {
		status := StatusFailed
		if domain.IsNotFound(err) {
			status = StatusNotFound
		}
		observability.RecordAnalysis(status)
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return nil, err
	}

	snap := res.Snapshot
	if metric != movement.MetricCount {
		if _, ok := snap.MetricIndex(metric); !ok {
			o.logger.Printf("[orchestrator] WARN metric %q not in snapshot, views will be zero", metric)
		}
	}

	marker := o.settings.RevenueMarker
	a := &Analysis{
		Snapshot: snap,
		Quality:  res.Quality,
		CacheHit: res.CacheHit,
		Metric:   metric,
		Marker:   marker,

		Summary: movement.SummaryView(snap, metric),
		Matrix:  movement.MovementMatrix(snap, metric),
		Sankey:  movement.SankeyFlows(snap, metric),

		Cohorts:       cohort.IdentifyCohorts(snap),
		CohortRevenue: cohort.CohortRevenue(snap, marker),

		ProductMix:      revenue.ProductMix(snap, marker, ""),
		SegmentProducts: revenue.SegmentProductMatrix(snap, marker),

		EntityRisk:  risk.ChurnRiskScores(snap, marker),
		SegmentRisk: risk.SegmentRisk(snap, marker),
	}
	a.RiskSummary = risk.Summarize(a.EntityRisk, a.SegmentRisk)
	a.Duration = timer.Stop()

	observability.RecordAnalysis(StatusOK)
	o.logger.Printf("[orchestrator] %d vs %d (%s): %d entities, %d cohorts, %d high-risk entities in %s",
		snap.BaseMonth, snap.CurrentMonth, metric, snap.Len(), len(a.Cohorts),
		a.RiskSummary.Entities[domain.RiskHigh], a.Duration)
	return a, nil
}

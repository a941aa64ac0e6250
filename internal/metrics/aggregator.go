package metrics

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"segment-flow-lab/internal/cache"
	"segment-flow-lab/internal/config"
	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/observability"
	"segment-flow-lab/internal/table"
)

// Options configures an Aggregator.
type Options struct {
	Columns      config.MetricsColumns
	WindowMonths int
	Cache        *cache.Cache // nil = no caching
	Logger       *log.Logger  // nil = log.Default()
}

// Aggregator computes trailing-window aggregates, reusing cached results
// stored under metrics/ttm_{month}.
type Aggregator struct {
	cols   config.MetricsColumns
	window int
	cache  *cache.Cache
	logger *log.Logger
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := opts.Cache
	if c == nil {
		c = cache.Disabled()
	}
	return &Aggregator{cols: opts.Columns, window: opts.WindowMonths, cache: c, logger: logger}
}

// WindowMonths returns the configured window length.
func (a *Aggregator) WindowMonths() int {
	return a.window
}

// Aggregate returns the window sums ending at target.
func (a *Aggregator) Aggregate(ctx context.Context, t table.Table, target int) (*domain.AggregatedMetrics, error) {
	ctx, span := observability.Tracer().Start(ctx, "metrics.Aggregate")
	span.SetAttributes(attribute.Int("target_month", target), attribute.Int("window_months", a.window))
	defer span.End()

	if cached, ok := a.cache.LoadMetrics(ctx, target, a.window); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	timer := observability.StartTimer("aggregate", nil)
	out, err := Aggregate(t, a.cols, target, a.window)
	elapsed := timer.Stop()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	a.logger.Printf("[aggregator] %d: %d entities, %d metrics over %d months in %s",
		target, len(out.Rows), len(out.MetricNames), len(out.Months), elapsed)

	a.cache.SaveMetrics(ctx, out)
	return out, nil
}

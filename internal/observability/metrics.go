// Package observability provides Prometheus metrics, stage timing and tracing setup.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheError    = "error"
	CacheDisabled = "disabled"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cache metrics
	CacheLookups *prometheus.CounterVec
	CacheWrites  *prometheus.CounterVec

	// Engine metrics
	StageDuration       *prometheus.HistogramVec
	SnapshotEntities    *prometheus.GaugeVec
	DataQualityWarnings *prometheus.CounterVec

	// Pipeline metrics
	AnalysesTotal   *prometheus.CounterVec
	PipelineRuns    *prometheus.CounterVec
	PipelineSeconds prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "segment_flow_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by category and result",
		}, []string{"category", "result"}),
		CacheWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Cache writes by category and result",
		}, []string{"category", "result"}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "stage_duration_seconds",
			Help:      "Duration of engine stages in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		SnapshotEntities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "snapshot_entities",
			Help:      "Entities in the last built snapshot by status",
		}, []string{"status"}),
		DataQualityWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "data_quality_warnings_total",
			Help:      "Data quality warnings by kind",
		}, []string{"kind"}),

		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analyses_total",
			Help:      "Month-pair analyses by status",
		}, []string{"status"}),
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Batch pipeline runs by status",
		}, []string{"status"}),
		PipelineSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Batch pipeline duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordCacheLookup records a cache lookup outcome.
func RecordCacheLookup(category, result string) {
	DefaultMetrics.CacheLookups.WithLabelValues(category, result).Inc()
}

// RecordCacheWrite records a cache write outcome.
func RecordCacheWrite(category string, err error) {
	result := "ok"
	if err != nil {
		result = CacheError
	}
	DefaultMetrics.CacheWrites.WithLabelValues(category, result).Inc()
}

// RecordStage records the duration of an engine stage.
func RecordStage(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordSnapshot publishes per-status entity counts of a built snapshot.
func RecordSnapshot(counts map[string]int) {
	for status, n := range counts {
		DefaultMetrics.SnapshotEntities.WithLabelValues(status).Set(float64(n))
	}
}

// RecordDataQualityWarning counts a data quality warning.
func RecordDataQualityWarning(kind string, n int) {
	DefaultMetrics.DataQualityWarnings.WithLabelValues(kind).Add(float64(n))
}

// RecordAnalysis counts one month-pair analysis.
func RecordAnalysis(status string) {
	DefaultMetrics.AnalysesTotal.WithLabelValues(status).Inc()
}

// RecordPipelineRun records a batch pipeline run.
func RecordPipelineRun(status string, durationSeconds float64) {
	DefaultMetrics.PipelineRuns.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineSeconds.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

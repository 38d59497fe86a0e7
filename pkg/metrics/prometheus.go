// Package metrics provides Prometheus metrics for the health engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Write-path metrics
	measurementsLogged   *prometheus.CounterVec
	validationRejections prometheus.Counter
	duplicateWrites      prometheus.Counter
	applyLatency         prometheus.Histogram

	// Derived-aggregate metrics
	recipeRecomputes   prometheus.Counter
	recomputeErrors    prometheus.Counter
	recomputeLatency   prometheus.Histogram
	summaryQueries     prometheus.Counter
	milestoneCrossings prometheus.Counter
	goalCompletions    prometheus.Counter
	goalConflicts      prometheus.Counter

	// Classification metrics
	classifications prometheus.Counter
	zoneComputes    prometheus.Counter

	// Store health
	storeSize prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "healthengine",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.measurementsLogged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "measurements_logged_total",
		Help:      "Measurements accepted into the store, by modality",
	}, []string{"modality"})

	m.validationRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_rejections_total",
		Help:      "Raw values rejected before persistence",
	})

	m.duplicateWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_writes_total",
		Help:      "Appends rejected by measurement id uniqueness",
	})

	m.applyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "apply_measurement_latency_milliseconds",
		Help:      "Latency of the log-and-derive write path in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.recipeRecomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recipe_recomputes_total",
		Help:      "Recipe per-serving total recomputations",
	})

	m.recomputeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_errors_total",
		Help:      "Recomputations that failed and left prior totals untouched",
	})

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_latency_milliseconds",
		Help:      "Latency of recipe recomputation in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.summaryQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "daily_summary_queries_total",
		Help:      "On-demand daily summary folds",
	})

	m.milestoneCrossings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "milestone_crossings_total",
		Help:      "Milestones achieved for the first time",
	})

	m.goalCompletions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "goal_completions_total",
		Help:      "Goals transitioned to completed",
	})

	m.goalConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "goal_conflicts_total",
		Help:      "Goal creations rejected by the single-active constraint",
	})

	m.classifications = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classifications_total",
		Help:      "Biomarker values classified",
	})

	m.zoneComputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "zone_computations_total",
		Help:      "Heart-rate zone profile computations",
	})

	m.storeSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_measurements",
		Help:      "Measurements currently held by the store",
	})
}

// Registry returns the registry metrics are collected into, for the
// metrics HTTP handler.
func Registry() *prometheus.Registry { return customRegistry }

// Package-level helpers against the global manager.

func RecordMeasurementLogged(modality string) {
	globalManager.measurementsLogged.WithLabelValues(modality).Inc()
}
func RecordValidationRejection() { globalManager.validationRejections.Inc() }
func RecordDuplicateWrite()     { globalManager.duplicateWrites.Inc() }
func RecordApplyLatency(ms float64) {
	globalManager.applyLatency.Observe(ms)
}
func RecordRecipeRecompute() { globalManager.recipeRecomputes.Inc() }
func RecordRecomputeError()  { globalManager.recomputeErrors.Inc() }
func RecordRecomputeLatency(ms float64) {
	globalManager.recomputeLatency.Observe(ms)
}
func RecordSummaryQuery()      { globalManager.summaryQueries.Inc() }
func RecordMilestoneCrossing() { globalManager.milestoneCrossings.Inc() }
func RecordGoalCompletion()    { globalManager.goalCompletions.Inc() }
func RecordGoalConflict()      { globalManager.goalConflicts.Inc() }
func RecordClassification()    { globalManager.classifications.Inc() }
func RecordZoneComputation()   { globalManager.zoneComputes.Inc() }
func UpdateStoreSize(n int) {
	globalManager.storeSize.Set(float64(n))
}

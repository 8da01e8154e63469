// Package metrics provides Prometheus metrics collection for FieldForge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for FieldForge.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Schema metrics
	SchemaMutations  *prometheus.CounterVec
	SchemaGeneration *prometheus.GaugeVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter

	// Record metrics
	RecordWrites       *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	VersionConflicts   prometheus.Counter

	// Cascade metrics
	CascadeBatches  prometheus.Counter
	CascadeDeletes  prometheus.Counter
	CascadeFailures prometheus.Counter

	// Relationship metrics
	ReferenceChecks   *prometheus.CounterVec
	ReferenceDuration prometheus.Histogram
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		// Request metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fieldforge",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fieldforge",
				Name:      "requests_in_flight",
				Help:      "Number of API requests currently being processed",
			},
		),

		// Auth metrics
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
			[]string{"reason"},
		),

		// Schema metrics
		SchemaMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "schema_mutations_total",
				Help:      "Total schema mutations by action",
			},
			[]string{"action"},
		),
		SchemaGeneration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fieldforge",
				Name:      "schema_generation",
				Help:      "Current schema generation per tenant",
			},
			[]string{"tenant_id"},
		),
		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "schema_cache_hits_total",
				Help:      "Total schema snapshot cache hits",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "schema_cache_misses_total",
				Help:      "Total schema snapshot cache misses",
			},
		),

		// Record metrics
		RecordWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "record_writes_total",
				Help:      "Total record writes by operation",
			},
			[]string{"operation"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "validation_failures_total",
				Help:      "Total record validation failures by error code",
			},
			[]string{"code"},
		),
		VersionConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "version_conflicts_total",
				Help:      "Total record updates rejected by optimistic concurrency",
			},
		),

		// Cascade metrics
		CascadeBatches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "cascade_batches_total",
				Help:      "Total cascade delete batches processed",
			},
		),
		CascadeDeletes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "cascade_deletes_total",
				Help:      "Total records removed by cascade deletes",
			},
		),
		CascadeFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "cascade_failures_total",
				Help:      "Total records that failed to delete during a cascade",
			},
		),

		// Relationship metrics
		ReferenceChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fieldforge",
				Name:      "reference_checks_total",
				Help:      "Total relationship existence checks by outcome",
			},
			[]string{"outcome"},
		),
		ReferenceDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "fieldforge",
				Name:      "reference_check_duration_seconds",
				Help:      "Relationship existence check duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
			},
		),
	}
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rainfall_heatmap"

// Metrics holds the Prometheus counters, histograms, and gauges for the heatmap service.
type Metrics struct {
	Generations        *prometheus.CounterVec // labels: outcome={success,fetch,parse,no_valid_data,out_of_range,superseded,internal}
	GenerationDuration prometheus.Histogram
	PointsRendered     prometheus.Histogram
	DegenerateMonths   prometheus.Counter

	// Dataset loading metrics.
	DatasetLoads        *prometheus.CounterVec // labels: outcome={success,error}
	DatasetLoadDuration prometheus.Histogram
	DatasetCache        *prometheus.CounterVec // labels: result={hit,miss}
	DatasetRows         prometheus.Gauge

	// Session and scene metrics.
	ActiveSessions prometheus.Gauge
	ActiveLayers   prometheus.Gauge

	// Event publishing metrics.
	EventsPublished *prometheus.CounterVec // labels: outcome={success,error}
	PublishEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.Generations,
		m.GenerationDuration,
		m.PointsRendered,
		m.DegenerateMonths,
		m.DatasetLoads,
		m.DatasetLoadDuration,
		m.DatasetCache,
		m.DatasetRows,
		m.ActiveSessions,
		m.ActiveLayers,
		m.EventsPublished,
		m.PublishEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

// NewUnregisteredMetrics creates Metrics that no registry collects. One-shot
// tools use it where a loader requires Metrics but nothing is scraped.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics(true)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      help("Heatmap generations by outcome."),
		}, []string{"outcome"}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      help("Duration of a complete fetch-parse-normalize-render cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PointsRendered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "points_rendered",
			Help:      help("Number of points per rendered heat layer."),
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		DegenerateMonths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_months_total",
			Help:      help("Generations where every valid cell held the same rainfall value."),
		}),
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      help("Dataset fetch-and-parse attempts by outcome."),
		}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      help("Dataset fetch-and-parse duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		DatasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_cache_total",
			Help:      help("Dataset cache lookups by result."),
		}, []string{"result"}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      help("Rows in the most recently parsed dataset."),
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      help("Browser sessions currently held in memory."),
		}),
		ActiveLayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_heat_layers",
			Help:      help("Heat layers currently attached to a viewport."),
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      help("Heatmap events published to Kafka by outcome."),
		}, []string{"outcome"}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publish_enabled",
			Help:      help("1 when heatmap events are published to Kafka, 0 otherwise."),
		}),
	}
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deal_discovery"

// Metrics holds the Prometheus collectors for photo intake and deal queries.
type Metrics struct {
	// Photo intake metrics.
	PhotosReceived   prometheus.Counter
	PhotosEnriched   *prometheus.CounterVec // labels: location_source={geotag,hint,fallback}
	PhotoFailures    *prometheus.CounterVec // labels: kind
	PipelineDuration prometheus.Histogram

	// Query metrics.
	QueryRequests    *prometheus.CounterVec // labels: operation, outcome={success,error}
	AddressFallbacks *prometheus.CounterVec // labels: reason={timeout,error,empty,disabled}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so multiple
// tests can each hold their own set.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PhotosReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photos_received_total",
			Help:      "Total photo uploads accepted for processing.",
		}),
		PhotosEnriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photos_enriched_total",
			Help:      "Photos enriched and queued, by where the coordinate came from.",
		}, []string{"location_source"}),
		PhotoFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_failures_total",
			Help:      "Photo uploads that failed, by error kind.",
		}, []string{"kind"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete photo enrichment run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		QueryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_requests_total",
			Help:      "Deal queries by operation and outcome.",
		}, []string{"operation", "outcome"}),
		AddressFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_fallbacks_total",
			Help:      "Deal addresses labelled from coordinates instead of geocoding, by reason.",
		}, []string{"reason"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when address resolution is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PhotosReceived,
		m.PhotosEnriched,
		m.PhotoFailures,
		m.PipelineDuration,
		m.QueryRequests,
		m.AddressFallbacks,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}

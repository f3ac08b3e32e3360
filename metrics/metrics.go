// Package metrics holds the Prometheus collectors of the app.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors, registered on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	catalogFetches   *prometheus.CounterVec
	catalogLatency   prometheus.Histogram
	catalogStale     prometheus.Counter
	locationResolves *prometheus.CounterVec
	authOperations   *prometheus.CounterVec
	visitorsActive   prometheus.Gauge

	registry *prometheus.Registry
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		catalogFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "larica_catalog_fetches_total",
				Help: "Restaurant API page fetches by outcome",
			},
			[]string{"outcome"},
		),
		catalogLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "larica_catalog_fetch_duration_seconds",
				Help:    "Restaurant API page fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		catalogStale: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "larica_catalog_stale_responses_total",
				Help: "Responses discarded because coordinates changed while in flight",
			},
		),
		locationResolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "larica_location_resolutions_total",
				Help: "Location resolution attempts by winning source",
			},
			[]string{"source"},
		),
		authOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "larica_auth_operations_total",
				Help: "Auth session operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		visitorsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "larica_visitors_active",
				Help: "Browser clients with live server-side state",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.catalogFetches,
		m.catalogLatency,
		m.catalogStale,
		m.locationResolves,
		m.authOperations,
		m.visitorsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CatalogFetch(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.catalogFetches.WithLabelValues(outcome).Inc()
	m.catalogLatency.Observe(took.Seconds())
}

func (m *Metrics) CatalogStale() {
	if m == nil {
		return
	}
	m.catalogStale.Inc()
}

func (m *Metrics) LocationResolved(source string) {
	if m == nil {
		return
	}
	m.locationResolves.WithLabelValues(source).Inc()
}

func (m *Metrics) AuthOperation(operation string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.authOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) VisitorOpened() {
	if m == nil {
		return
	}
	m.visitorsActive.Inc()
}

func (m *Metrics) VisitorClosed() {
	if m == nil {
		return
	}
	m.visitorsActive.Dec()
}

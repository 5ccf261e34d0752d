package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/fundcompare/backend/internal/contracts"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	FeedFetches       *prometheus.CounterVec
	FeedFetchDuration *prometheus.HistogramVec
	CommandFailures   *prometheus.CounterVec
	PushClientsGauge  prometheus.Gauge
}

// NewMetrics registers every collector on a private registry.
// sessions, when set, is exported as the live session gauge.
func NewMetrics(sessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundcompare_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundcompare_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		FeedFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundcompare_feed_fetches_total",
				Help: "Document fetches by location and result kind",
			},
			[]string{"location", "result"},
		),

		FeedFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundcompare_feed_fetch_duration_seconds",
				Help:    "Document fetch latency by location",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"location"},
		),

		CommandFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundcompare_command_failures_total",
				Help: "Rejected session commands by operation and error kind",
			},
			[]string{"op", "kind"},
		),

		PushClientsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundcompare_push_clients",
				Help: "Connected WebSocket push clients",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.FeedFetches,
		m.FeedFetchDuration,
		m.CommandFailures,
		m.PushClientsGauge,
	)

	if sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "fundcompare_sessions",
				Help: "Live selection sessions",
			},
			func() float64 { return float64(sessions()) },
		))
	}

	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch records one document fetch. It matches feed.FetchObserver.
func (m *Metrics) ObserveFetch(location string, elapsed time.Duration, err error) {
	m.FeedFetches.WithLabelValues(location, contracts.Kind(err)).Inc()
	m.FeedFetchDuration.WithLabelValues(location).Observe(elapsed.Seconds())
}

// CommandFailed counts a rejected session command
func (m *Metrics) CommandFailed(op, kind string) {
	m.CommandFailures.WithLabelValues(op, kind).Inc()
}

// PushClients moves the push client gauge
func (m *Metrics) PushClients(delta int) {
	m.PushClientsGauge.Add(float64(delta))
}

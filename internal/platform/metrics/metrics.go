// Package metrics exposes Prometheus instrumentation on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
	OutcomeBudget  = "budget"
)

// Metrics holds every collector the server records. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	topicsExtracted    *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minerva_generations_total",
			Help: "Generation requests by flow and outcome.",
		}, []string{"flow", "outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minerva_generation_duration_seconds",
			Help:    "Time spent waiting on the model.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"flow"}),
		topicsExtracted: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minerva_topics_extracted",
			Help:    "Topics extracted per document.",
			Buckets: []float64{0, 1, 3, 5, 10, 15},
		}, []string{"policy"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minerva_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generations,
		m.generationDuration,
		m.topicsExtracted,
		m.httpRequests,
	)
	return m
}

// ObserveGeneration records one generation attempt.
func (m *Metrics) ObserveGeneration(flow, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(flow, outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeError {
		m.generationDuration.WithLabelValues(flow).Observe(d.Seconds())
	}
}

// ObserveTopics records how many topics a policy produced.
func (m *Metrics) ObserveTopics(policy string, n int) {
	if m == nil {
		return
	}
	m.topicsExtracted.WithLabelValues(policy).Observe(float64(n))
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

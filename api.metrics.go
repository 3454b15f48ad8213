package main

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the prometheus collectors of the api. Each APIHandler
// owns its registry so tests never clash on the default one.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	ebooks   *prometheus.CounterVec
}

// NewMetrics provides a ready to use Metrics with go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ebooks_api",
			Name:      "http_requests_total",
			Help:      "Number of handled http requests.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ebooks_api",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of handled http requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ebooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ebooks_api",
			Name:      "ebook_operations_total",
			Help:      "Number of successful ebook storage operations.",
		}, []string{"operation"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.ebooks,
	)
	return m
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(method, route string, code int, seconds float64) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(seconds)
}

// CountOperation records one successful ebook operation.
func (m *Metrics) CountOperation(op string) {
	m.ebooks.WithLabelValues(op).Inc()
}

// Handler exposes the registry in prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GetMetrics serves the prometheus metrics.
func (api *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	api.metrics.Handler().ServeHTTP(w, r)
}

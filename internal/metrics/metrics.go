// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortlink"

// OutcomeOK labels a successful shorten request
const OutcomeOK = "ok"

// Metrics owns a private registry so tests can build as many as they like
type Metrics struct {
	registry        *prometheus.Registry
	shortenTotal    *prometheus.CounterVec
	redirectsTotal  *prometheus.CounterVec
	purgedTotal     prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		shortenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shorten_requests_total",
			Help:      "Shorten requests by outcome.",
		}, []string{"outcome"}),
		redirectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Redirect lookups by result.",
		}, []string{"result"}),
		purgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_purged_total",
			Help:      "Expired short URLs removed by the sync loop.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.shortenTotal,
		m.redirectsTotal,
		m.purgedTotal,
		m.requestDuration,
	)

	return m
}

// ObserveShorten counts one shorten request; outcome is OutcomeOK or an error code
func (m *Metrics) ObserveShorten(outcome string) {
	m.shortenTotal.WithLabelValues(outcome).Inc()
}

// ObserveRedirect counts one redirect lookup
func (m *Metrics) ObserveRedirect(found bool) {
	result := "found"
	if !found {
		result = "not_found"
	}
	m.redirectsTotal.WithLabelValues(result).Inc()
}

// ObservePurged adds n purged entries
func (m *Metrics) ObservePurged(n int) {
	m.purgedTotal.Add(float64(n))
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

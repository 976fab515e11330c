package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one server. Each server owns
// its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	quickEntries    *prometheus.CounterVec
	budgetReports   *prometheus.CounterVec
	rateLimited     prometheus.Counter
	suspicious      prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ausgaben",
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, partitioned by method, route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ausgaben",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		quickEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ausgaben",
			Name:      "quick_entries_total",
			Help:      "Quick-entry lines submitted, partitioned by outcome.",
		}, []string{"result"}),
		budgetReports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ausgaben",
			Name:      "budget_reports_total",
			Help:      "Budget reports served, partitioned by per-day classification.",
		}, []string{"classification"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ausgaben",
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-client rate limit.",
		}),
		suspicious: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ausgaben",
			Name:      "suspicious_requests_total",
			Help:      "Requests flagged by the security detector.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

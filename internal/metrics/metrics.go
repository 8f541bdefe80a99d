// Package metrics exposes the Prometheus instruments of the WebDAV server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the server's Prometheus collectors around a private
// registry, so tests can build as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New builds the collector set. activeLocks is polled for the lock gauge
// on every scrape.
func New(activeLocks func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "webdavd_requests_total",
				Help: "Requests processed, by method and response status",
			},
			[]string{"method", "code"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webdavd_request_duration_seconds",
				Help:    "Request latency, by method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "webdavd_locks_active",
			Help: "Write locks currently held",
		},
		func() float64 { return float64(activeLocks()) },
	)
	return m
}

// Middleware records one observation per request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the scrape endpoint for this collector set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

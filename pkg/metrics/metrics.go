// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements authz.DenialRecorder and audit.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	denials      *prometheus.CounterVec
	auditWritten prometheus.Counter
	auditDropped prometheus.Counter
	auditFailed  prometheus.Counter
	rateLimited  prometheus.Counter

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_denials_total",
			Help: "Requests rejected by the permission enforcer, by error code.",
		}, []string{"code"}),
		auditWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Audit entries appended to the store.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Audit entries dropped because the queue was full or closed.",
		}),
		auditFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_failed_total",
			Help: "Audit entries the store failed to append.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.denials,
		m.auditWritten,
		m.auditDropped,
		m.auditFailed,
		m.rateLimited,
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

func (m *Metrics) RecordDenial(code string) { m.denials.WithLabelValues(code).Inc() }

func (m *Metrics) AuditWritten() { m.auditWritten.Inc() }

func (m *Metrics) AuditDropped() { m.auditDropped.Inc() }

func (m *Metrics) AuditFailed() { m.auditFailed.Inc() }

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RouteFunc names the route of a request for the "route" label. Raw paths
// carry ids and would explode label cardinality.
type RouteFunc func(r *http.Request) string

// Instrument records request count, latency and in-flight requests.
func (m *Metrics) Instrument(route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			name := "unmatched"
			if route != nil {
				if n := route(r); n != "" {
					name = n
				}
			}
			status := strconv.Itoa(sw.code)
			m.httpRequestDuration.WithLabelValues(r.Method, name, status).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(r.Method, name, status).Inc()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

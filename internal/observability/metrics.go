package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authzDecisions  *prometheus.CounterVec
	auditEnqueued   prometheus.Counter
	auditDropped    prometheus.Counter
	auditAppended   prometheus.Counter
	auditBacklog    prometheus.Gauge
	sweepExpired    prometheus.Counter
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nzila_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nzila_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nzila_authz_decisions_total",
		Help: "Authorization decisions by outcome.",
	}, []string{"granted"})
	enqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nzila_audit_enqueued_total",
		Help: "Audit entries handed to the append queue.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nzila_audit_dropped_total",
		Help: "Audit entries lost because the queue was unavailable.",
	})
	appended := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nzila_audit_appended_total",
		Help: "Audit entries durably appended to the ledger.",
	})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nzila_audit_backlog",
		Help: "Audit append tasks waiting, scheduled, or retrying in the queue.",
	})
	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nzila_term_sweep_expired_total",
		Help: "Assignments expired by term sweeps.",
	})
	registry.MustRegister(requests, duration, decisions, enqueued, dropped, appended, backlog, swept)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		authzDecisions:  decisions,
		auditEnqueued:   enqueued,
		auditDropped:    dropped,
		auditAppended:   appended,
		auditBacklog:    backlog,
		sweepExpired:    swept,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// AuthzDecision counts one authorization outcome.
func (m *Metrics) AuthzDecision(granted bool) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(strconv.FormatBool(granted)).Inc()
}

// AuditEnqueued counts one successful handoff to the append queue.
func (m *Metrics) AuditEnqueued() {
	if m == nil {
		return
	}
	m.auditEnqueued.Inc()
}

// AuditDropped counts one entry lost at enqueue time.
func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// AuditBacklog records the current depth of the append queue.
func (m *Metrics) AuditBacklog(n int) {
	if m == nil {
		return
	}
	m.auditBacklog.Set(float64(n))
}

// AuditAppended counts one durable ledger append.
func (m *Metrics) AuditAppended() {
	if m == nil {
		return
	}
	m.auditAppended.Inc()
}

// SweepExpired counts assignments expired by a sweep run.
func (m *Metrics) SweepExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepExpired.Add(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Every method is
// safe to call on a nil *Metrics so components can run without metrics.
type Metrics struct {
	Operations      *prometheus.CounterVec
	Denials         *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
	AuditFailures   *prometheus.CounterVec
	AuditMirrorLost prometheus.Counter
	HandleLatency   *prometheus.HistogramVec
	HTTPLatency     *prometheus.HistogramVec
}

// New creates and registers all metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medgate_operations_total",
			Help: "Mediated operations by operation and policy decision",
		}, []string{"operation", "decision"}),
		Denials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medgate_access_denied_total",
			Help: "Operations refused by the access policy",
		}, []string{"role", "operation"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medgate_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		AuditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medgate_audit_write_failures_total",
			Help: "Audit entries that could not be persisted",
		}, []string{"action"}),
		AuditMirrorLost: f.NewCounter(prometheus.CounterOpts{
			Name: "medgate_audit_mirror_dropped_total",
			Help: "Audit entries the stream mirror failed to publish",
		}),
		HandleLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medgate_handle_duration_seconds",
			Help:    "Duration of mediated operations including persistence and audit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncOperation(operation, decision string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, decision).Inc()
	}
}

func (m *Metrics) IncDenied(role, operation string) {
	if m != nil {
		m.Denials.WithLabelValues(role, operation).Inc()
	}
}

func (m *Metrics) IncLogin(outcome string) {
	if m != nil {
		m.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncAuditFailure(action string) {
	if m != nil {
		m.AuditFailures.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncAuditMirrorDropped() {
	if m != nil {
		m.AuditMirrorLost.Inc()
	}
}

func (m *Metrics) ObserveHandle(operation string, d time.Duration) {
	if m != nil {
		m.HandleLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, status).Observe(d.Seconds())
	}
}

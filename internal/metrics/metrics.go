// Package metrics exposes Prometheus metrics for the authentication service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "dailyfresh"
	subsystem = "auth"
)

var (
	// LoginAttemptsTotal counts login decisions by surface and outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_attempts_total",
			Help:      "Total login attempts by surface and outcome.",
		},
		[]string{"surface", "outcome"},
	)

	// LoginDurationSeconds measures time spent deciding a login.
	LoginDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_duration_seconds",
			Help:      "Login decision latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
		[]string{"surface"},
	)

	// AuditDroppedTotal counts audit events given up on after retries.
	AuditDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_dropped_total",
			Help:      "Audit events dropped after exhausting retries.",
		},
		[]string{"table"},
	)

	// HTTPRequestsTotal counts requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route, and status.",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordAuditDrop is an audit recorder drop hook.
func RecordAuditDrop(table string) {
	AuditDroppedTotal.WithLabelValues(table).Inc()
}

// Package metrics defines Prometheus metrics for schemafence.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schemafence_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemafence_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemafence_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	ProvisionQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemafence_provision_queue_depth",
			Help: "Pending provisioning and deprovisioning jobs",
		},
	)

	ProvisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemafence_provisions_total",
			Help: "Completed provisioning runs by outcome",
		},
		[]string{"outcome"},
	)

	ProvisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schemafence_provision_duration_seconds",
			Help:    "Tenant schema provisioning duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	DeletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemafence_deletions_total",
			Help: "Completed tenant deletions by outcome (clean, partial, aborted)",
		},
		[]string{"outcome"},
	)

	AuditDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemafence_audit_drops_total",
			Help: "Audit entries dropped because the queue was full",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemafence_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	TenantsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schemafence_tenants",
			Help: "Registered tenants by lifecycle status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		ProvisionQueueDepth, ProvisionsTotal, ProvisionDuration,
		DeletionsTotal, AuditDropsTotal,
		WSConnections, TenantsByStatus,
	)
}

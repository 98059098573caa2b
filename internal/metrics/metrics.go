// Package metrics registers the console's Prometheus collectors.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "console"

var (
	// HTTPRequests counts handled requests by route template and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route template.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RealtimeSubscribers tracks local subscribers per table.
	RealtimeSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_subscribers",
		Help:      "Local live-update subscribers per table.",
	}, []string{"table"})

	// RealtimeChanges counts change events published per table and type.
	RealtimeChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_changes_total",
		Help:      "Change events published, by table and type.",
	}, []string{"table", "type"})

	// JobsProcessed counts worker jobs by type and result (ok, retried, dead).
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Background jobs processed, by type and result.",
	}, []string{"type", "result"})
)

// Handler serves the default registry for GET /metrics.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream call gate
	QuotaRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onumap_upstream_quota_remaining",
			Help: "Calls left in the current hourly window per restricted class",
		},
		[]string{"class"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_upstream_quota_rejections_total",
			Help: "Calls refused locally because the hourly quota was spent",
		},
		[]string{"class"},
	)

	// Upstream client
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onumap_upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_upstream_errors_total",
			Help: "Upstream API failures by kind",
		},
		[]string{"endpoint", "kind"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onumap_upstream_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Result cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_cache_hits_total",
			Help: "Result cache hits by key prefix",
		},
		[]string{"prefix"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_cache_misses_total",
			Help: "Result cache misses by key prefix",
		},
		[]string{"prefix"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_cache_errors_total",
			Help: "Storage failures swallowed by the result cache",
		},
		[]string{"operation"},
	)

	// Status monitoring
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_status_transitions_total",
			Help: "Observed ONU status transitions by new status",
		},
		[]string{"status"},
	)

	DevicesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onumap_devices",
			Help: "Devices in the last unfiltered aggregation by status",
		},
		[]string{"status"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "onumap_refresh_duration_seconds",
			Help:    "Duration of background refresh passes",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onumap_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onumap_websocket_connections",
			Help: "Currently connected WebSocket clients",
		},
	)

	WSDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onumap_websocket_dropped_messages_total",
			Help: "Messages dropped because a client send buffer was full",
		},
	)

	// Alerts
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onumap_alerts_sent_total",
			Help: "Chat alerts delivered by result",
		},
		[]string{"result"},
	)
)

// RecordUpstream records one upstream request
func RecordUpstream(endpoint string, duration time.Duration, kind string) {
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if kind != "" {
		UpstreamErrors.WithLabelValues(endpoint, kind).Inc()
	}
}

// RecordAPIRequest records one HTTP API request
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAlert records the outcome of one chat alert
func RecordAlert(delivered bool) {
	if delivered {
		AlertsSent.WithLabelValues("delivered").Inc()
		return
	}
	AlertsSent.WithLabelValues("failed").Inc()
}

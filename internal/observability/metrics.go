package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total HTTP requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_http_requests_total",
			Help: "Total control API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediation_http_request_duration_seconds",
			Help:    "Histogram of control API request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// lifecycle transitions per format
	TransitionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_transitions_total",
			Help: "Ad unit lifecycle transitions",
		},
		[]string{"format", "from", "to"},
	)

	// calls issued to the ad backend
	BackendCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_backend_calls_total",
			Help: "Calls forwarded to the ad backend",
		},
		[]string{"backend", "op", "result"},
	)

	// callbacks by outcome (accepted, stale, unknown_unit, malformed)
	CallbackCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_callbacks_total",
			Help: "Backend callbacks processed by outcome",
		},
		[]string{"event", "outcome"},
	)

	// facade operations that degraded to a no-op
	RejectedOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_rejected_ops_total",
			Help: "Facade operations rejected as no-ops",
		},
		[]string{"op", "reason"},
	)

	// registered ad units per format
	AdUnits = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediation_ad_units",
			Help: "Registered ad unit records",
		},
		[]string{"format"},
	)

	// callbacks waiting for redelivery
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediation_callback_queue_depth",
			Help: "Callbacks waiting to be redelivered to the coordinator",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		TransitionCount,
		BackendCalls,
		CallbackCount,
		RejectedOps,
		AdUnits,
		QueueDepth,
	)
}

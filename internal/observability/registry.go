package observability

import "time"

// MetricsRegistry provides an interface for recording coordinator metrics so
// components receive it by injection instead of touching Prometheus globals.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Lifecycle metrics
	IncrementTransitions(format, from, to string)
	SetAdUnits(format string, count int)

	// Backend dispatch metrics
	IncrementBackendCalls(backend, op, result string)

	// Callback metrics
	IncrementCallbacks(event, outcome string)
	SetQueueDepth(depth int)

	// Facade metrics
	IncrementRejectedOps(op, reason string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementTransitions(format, from, to string) {
	TransitionCount.WithLabelValues(format, from, to).Inc()
}

func (r *PrometheusRegistry) SetAdUnits(format string, count int) {
	AdUnits.WithLabelValues(format).Set(float64(count))
}

func (r *PrometheusRegistry) IncrementBackendCalls(backend, op, result string) {
	BackendCalls.WithLabelValues(backend, op, result).Inc()
}

func (r *PrometheusRegistry) IncrementCallbacks(event, outcome string) {
	CallbackCount.WithLabelValues(event, outcome).Inc()
}

func (r *PrometheusRegistry) SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

func (r *PrometheusRegistry) IncrementRejectedOps(op, reason string) {
	RejectedOps.WithLabelValues(op, reason).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementTransitions(format, from, to string)                         {}
func (r *NoOpRegistry) SetAdUnits(format string, count int)                                  {}
func (r *NoOpRegistry) IncrementBackendCalls(backend, op, result string)                     {}
func (r *NoOpRegistry) IncrementCallbacks(event, outcome string)                             {}
func (r *NoOpRegistry) SetQueueDepth(depth int)                                              {}
func (r *NoOpRegistry) IncrementRejectedOps(op, reason string)                               {}

package observability

import (
	"strings"
	"sync"
	"time"
)

// MockMetricsRegistry records every metric call so tests can assert on them.
// Counter keys are the label values joined with "|".
type MockMetricsRegistry struct {
	mu       sync.Mutex
	counters map[string]map[string]int
	gauges   map[string]map[string]int
}

// NewMockMetricsRegistry creates an empty recording registry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		counters: make(map[string]map[string]int),
		gauges:   make(map[string]map[string]int),
	}
}

func (m *MockMetricsRegistry) inc(metric string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters[metric] == nil {
		m.counters[metric] = make(map[string]int)
	}
	m.counters[metric][strings.Join(labels, "|")]++
}

func (m *MockMetricsRegistry) set(metric string, v int, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gauges[metric] == nil {
		m.gauges[metric] = make(map[string]int)
	}
	m.gauges[metric][strings.Join(labels, "|")] = v
}

// Count returns how often a counter was incremented with the given labels.
func (m *MockMetricsRegistry) Count(metric string, labels ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metric][strings.Join(labels, "|")]
}

// Gauge returns the last value set for a gauge.
func (m *MockMetricsRegistry) Gauge(metric string, labels ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[metric][strings.Join(labels, "|")]
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.inc("requests", endpoint, method, status)
}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementTransitions(format, from, to string) {
	m.inc("transitions", format, from, to)
}
func (m *MockMetricsRegistry) SetAdUnits(format string, count int) {
	m.set("ad_units", count, format)
}
func (m *MockMetricsRegistry) IncrementBackendCalls(backend, op, result string) {
	m.inc("backend_calls", backend, op, result)
}
func (m *MockMetricsRegistry) IncrementCallbacks(event, outcome string) {
	m.inc("callbacks", event, outcome)
}
func (m *MockMetricsRegistry) SetQueueDepth(depth int) {
	m.set("queue_depth", depth)
}
func (m *MockMetricsRegistry) IncrementRejectedOps(op, reason string) {
	m.inc("rejected_ops", op, reason)
}

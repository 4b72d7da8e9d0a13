package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the API access gate.
type Metrics struct {
	gateDecisions          *prometheus.CounterVec
	rateLimitStoreFailures *prometheus.CounterVec
	lastUsedFailures       prometheus.Counter
	windowsSwept           prometheus.Counter
}

// NewMetrics registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendwise_gate_decisions_total",
				Help: "Total number of API gate decisions by outcome",
			},
			[]string{"outcome"},
		),
		rateLimitStoreFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendwise_ratelimit_store_failures_total",
				Help: "Rate limit checks that failed open because the window store errored",
			},
			[]string{"window_type"},
		),
		lastUsedFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spendwise_apikey_last_used_update_failures_total",
				Help: "Failed asynchronous last_used_at refreshes",
			},
		),
		windowsSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spendwise_ratelimit_windows_swept_total",
				Help: "Rate limit windows deleted by the retention sweep",
			},
		),
	}
}

// RecordGateDecision counts one gate outcome, e.g. "allowed" or a denial code.
func (m *Metrics) RecordGateDecision(outcome string) {
	m.gateDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRateLimitStoreFailure(windowType string) {
	m.rateLimitStoreFailures.WithLabelValues(windowType).Inc()
}

func (m *Metrics) RecordLastUsedFailure() {
	m.lastUsedFailures.Inc()
}

func (m *Metrics) RecordWindowsSwept(n int64) {
	m.windowsSwept.Add(float64(n))
}

// GateDecisions exposes the decision counter for assertions.
func (m *Metrics) GateDecisions() *prometheus.CounterVec { return m.gateDecisions }

func (m *Metrics) RateLimitStoreFailures() *prometheus.CounterVec { return m.rateLimitStoreFailures }

func (m *Metrics) LastUsedFailures() prometheus.Counter { return m.lastUsedFailures }

func (m *Metrics) WindowsSwept() prometheus.Counter { return m.windowsSwept }

package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/courier/metrics"
)

// Metrics holds service call metrics
type Metrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	ServedTotal  *prometheus.CounterVec
}

// NewMetrics creates service call metrics
func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("courier", "service")

	return &Metrics{
		CallsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "calls_total",
			Help: "Total number of client call attempts by outcome",
		}, []string{"service", "method", "state"}),

		CallDuration: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Duration of client call attempts",
			Buckets: metrics.NetworkBuckets,
		}, []string{"service", "method"}),

		ServedTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "served_total",
			Help: "Total number of requests served by outcome",
		}, []string{"service", "method", "success"}),
	}
}

// RecordCall records one client call attempt
func (m *Metrics) RecordCall(service, method string, state CallState, elapsed time.Duration) {
	m.CallsTotal.WithLabelValues(service, method, state.String()).Inc()
	m.CallDuration.WithLabelValues(service, method).Observe(elapsed.Seconds())
}

// RecordServed records one request handled by a server
func (m *Metrics) RecordServed(service, method string, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	m.ServedTotal.WithLabelValues(service, method, label).Inc()
}

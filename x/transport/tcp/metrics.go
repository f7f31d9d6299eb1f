package tcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/courier/metrics"
)

// Metrics holds hub-level metrics
type Metrics struct {
	ConnectionsTotal   *prometheus.CounterVec
	ConnectionsActive  prometheus.Gauge
	ConnectionDuration prometheus.Histogram

	FramesTotal     *prometheus.CounterVec
	FrameSizeBytes  *prometheus.HistogramVec
	RelayRecipients prometheus.Histogram

	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates hub metrics
func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("courier", "hub")

	return &Metrics{
		ConnectionsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "connections_total",
			Help: "Total number of client connections by state",
		}, []string{"state"}),

		ConnectionsActive: reg.NewGauge(prometheus.GaugeOpts{
			Name: "connections_active",
			Help: "Number of active client connections",
		}),

		ConnectionDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "connection_duration_seconds",
			Help:    "Duration of client connections",
			Buckets: metrics.NetworkBuckets,
		}),

		FramesTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "frames_total",
			Help: "Total number of frames by kind and direction",
		}, []string{"kind", "direction"}),

		FrameSizeBytes: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frame_payload_bytes",
			Help:    "Payload size of frames",
			Buckets: metrics.SizeBuckets,
		}, []string{"kind"}),

		RelayRecipients: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_recipients",
			Help:    "Number of subscriber connections per relayed publish",
			Buckets: metrics.CountBuckets,
		}),

		ErrorsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of hub errors",
		}, []string{"type", "operation"}),
	}
}

// RecordConnection records a connection event
func (m *Metrics) RecordConnection(state string) {
	m.ConnectionsTotal.WithLabelValues(state).Inc()

	switch state {
	case "accepted":
		m.ConnectionsActive.Inc()
	case "closed":
		m.ConnectionsActive.Dec()
	default:
	}
}

// RecordConnectionDuration records how long a connection lived
func (m *Metrics) RecordConnectionDuration(d time.Duration) {
	m.ConnectionDuration.Observe(d.Seconds())
}

// RecordFrame records one frame
func (m *Metrics) RecordFrame(k kind, direction string, payloadSize int) {
	m.FramesTotal.WithLabelValues(k.String(), direction).Inc()
	if direction == "received" {
		m.FrameSizeBytes.WithLabelValues(k.String()).Observe(float64(payloadSize))
	}
}

// RecordRelay records the fan-out of one publish
func (m *Metrics) RecordRelay(recipients int) {
	m.RelayRecipients.Observe(float64(recipients))
}

// RecordError records a hub error
func (m *Metrics) RecordError(errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(errorType, operation).Inc()
}

package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/courier/metrics"
)

// Metrics holds publish/subscribe metrics, labelled by topic
type Metrics struct {
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	PayloadBytes     *prometheus.CounterVec
	EncodeFailures   *prometheus.CounterVec
	AckTimeouts      *prometheus.CounterVec
}

// NewMetrics creates publish/subscribe metrics
func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("courier", "pubsub")

	return &Metrics{
		MessagesSent: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of messages handed to the transport",
		}, []string{"topic"}),

		MessagesReceived: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_received_total",
			Help: "Total number of messages decoded and delivered",
		}, []string{"topic"}),

		MessagesDropped: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_dropped_total",
			Help: "Total number of received messages dropped",
		}, []string{"topic", "reason"}),

		PayloadBytes: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "payload_bytes_total",
			Help: "Total payload bytes by direction",
		}, []string{"topic", "direction"}),

		EncodeFailures: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "encode_failures_total",
			Help: "Total number of values that failed to encode",
		}, []string{"topic"}),

		AckTimeouts: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "ack_timeouts_total",
			Help: "Total number of zero-copy sends whose buffer was not acknowledged in time",
		}, []string{"topic"}),
	}
}

func (m *Metrics) recordSent(topic string, size int) {
	m.MessagesSent.WithLabelValues(topic).Inc()
	m.PayloadBytes.WithLabelValues(topic, "sent").Add(float64(size))
}

func (m *Metrics) recordReceived(topic string, size int) {
	m.MessagesReceived.WithLabelValues(topic).Inc()
	m.PayloadBytes.WithLabelValues(topic, "received").Add(float64(size))
}

func (m *Metrics) recordDropped(topic, reason string) {
	m.MessagesDropped.WithLabelValues(topic, reason).Inc()
}

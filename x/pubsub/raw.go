// Package pubsub provides typed publishers and subscribers bound to one
// payload type and one codec on top of a byte transport.
package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/datatype"
	"github.com/compose-network/courier/x/payload"
	"github.com/compose-network/courier/x/transport"
)

// RawPublisher publishes opaque bytes under a fixed descriptor.
type RawPublisher struct {
	topic   string
	dt      datatype.Descriptor
	writer  transport.TopicWriter
	log     zerolog.Logger
	metrics *Metrics
}

// NewRawPublisher advertises topic on tr.
func NewRawPublisher(tr transport.Transport, topic string, dt datatype.Descriptor, opts ...Option) (*RawPublisher, error) {
	cfg := applyOptions(opts)

	w, err := tr.Advertise(topic, dt, cfg.payload)
	if err != nil {
		return nil, fmt.Errorf("advertise %q: %w", topic, err)
	}

	log := cfg.log.With().Str("component", "publisher").Str("topic", topic).Logger()
	log.Debug().
		Stringer("datatype", dt).
		Bool("zero_copy", cfg.payload.ZeroCopy).
		Int("buffer_count", cfg.payload.BufferCount).
		Dur("acknowledge_timeout", cfg.payload.AcknowledgeTimeout).
		Msg("Publisher created")

	return &RawPublisher{
		topic:   topic,
		dt:      dt,
		writer:  w,
		log:     log,
		metrics: NewMetrics(),
	}, nil
}

// Send publishes data.
func (p *RawPublisher) Send(ctx context.Context, data []byte, opts ...SendOption) error {
	var sc sendConfig
	for _, opt := range opts {
		opt(&sc)
	}

	if err := p.writer.Send(ctx, data, sc.timestamp); err != nil {
		return fmt.Errorf("send on %q: %w", p.topic, err)
	}
	p.metrics.recordSent(p.topic, len(data))
	return nil
}

// SendPayloadWriter lets w write straight into a transport buffer. A zero ts
// means now. An expired acknowledge timeout is reported in the result and
// logged, not returned as an error.
func (p *RawPublisher) SendPayloadWriter(ctx context.Context, w payload.Writer, ts time.Time) (payload.WriteResult, error) {
	res, err := p.writer.SendWriter(ctx, w, ts)
	if err != nil {
		return res, fmt.Errorf("send payload writer on %q: %w", p.topic, err)
	}
	if res.AckTimedOut {
		p.metrics.AckTimeouts.WithLabelValues(p.topic).Inc()
		p.log.Debug().Int("size", res.Size).Msg("Buffer acknowledge timed out")
	}
	p.metrics.recordSent(p.topic, res.Size)
	return res, nil
}

// SubscriberCount returns the number of matched subscribers, best effort.
func (p *RawPublisher) SubscriberCount() int {
	return p.writer.SubscriberCount()
}

// DataType returns the advertised descriptor.
func (p *RawPublisher) DataType() datatype.Descriptor {
	return p.dt
}

// Topic returns the topic name.
func (p *RawPublisher) Topic() string {
	return p.topic
}

// Close withdraws the publisher.
func (p *RawPublisher) Close() error {
	return p.writer.Close()
}

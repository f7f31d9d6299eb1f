package pubsub

import (
	"context"

	"github.com/compose-network/courier/x/codec"
	"github.com/compose-network/courier/x/transport"
)

// Publisher sends values of T encoded by one fixed encoder.
type Publisher[T any] struct {
	raw *RawPublisher
	enc codec.Encoder[T]
}

// NewPublisher advertises topic with the encoder's descriptor.
func NewPublisher[T any](tr transport.Transport, topic string, enc codec.Encoder[T], opts ...Option) (*Publisher[T], error) {
	raw, err := NewRawPublisher(tr, topic, enc.DataType(), opts...)
	if err != nil {
		return nil, err
	}
	return &Publisher[T]{raw: raw, enc: enc}, nil
}

// Send encodes v and publishes it. An encoding failure is logged and
// returned wrapping codec.ErrEncode; nothing is sent.
func (p *Publisher[T]) Send(ctx context.Context, v T, opts ...SendOption) error {
	data, err := p.enc.Encode(v)
	if err != nil {
		p.raw.metrics.EncodeFailures.WithLabelValues(p.raw.topic).Inc()
		p.raw.log.Error().Err(err).Msg("Failed to encode message")
		return err
	}
	return p.raw.Send(ctx, data, opts...)
}

// SubscriberCount returns the number of matched subscribers, best effort.
func (p *Publisher[T]) SubscriberCount() int {
	return p.raw.SubscriberCount()
}

// Raw exposes the untyped publisher underneath.
func (p *Publisher[T]) Raw() *RawPublisher {
	return p.raw
}

// Close withdraws the publisher.
func (p *Publisher[T]) Close() error {
	return p.raw.Close()
}

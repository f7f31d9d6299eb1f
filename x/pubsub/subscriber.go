package pubsub

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/codec"
	"github.com/compose-network/courier/x/transport"
)

// Received is one decoded message with its metadata.
type Received[T any] struct {
	TopicName string
	Encoding  string
	TypeName  string
	Timestamp time.Time
	Clock     uint64
	Payload   codec.Message[T]
}

// Callback handles received messages. It runs on a transport delivery
// goroutine, one message at a time per subscriber.
type Callback[T any] func(Received[T])

// Subscriber decodes messages of one topic with one fixed decoder.
type Subscriber[T any] struct {
	topic   string
	dec     codec.Decoder[T]
	reader  transport.TopicReader
	cb      atomic.Pointer[Callback[T]]
	log     zerolog.Logger
	metrics *Metrics
}

// NewSubscriber subscribes to topic. Messages arriving before SetCallback
// are dropped.
func NewSubscriber[T any](tr transport.Transport, topic string, dec codec.Decoder[T], opts ...Option) (*Subscriber[T], error) {
	cfg := applyOptions(opts)

	s := &Subscriber[T]{
		topic:   topic,
		dec:     dec,
		log:     cfg.log.With().Str("component", "subscriber").Str("topic", topic).Logger(),
		metrics: NewMetrics(),
	}

	reader, err := tr.Subscribe(topic, dec.DataType(), s.receive)
	if err != nil {
		return nil, fmt.Errorf("subscribe %q: %w", topic, err)
	}
	s.reader = reader

	s.log.Debug().Stringer("datatype", dec.DataType()).Msg("Subscriber created")
	return s, nil
}

// SetCallback installs cb, replacing any previous callback.
func (s *Subscriber[T]) SetCallback(cb Callback[T]) {
	s.cb.Store(&cb)
}

// RemoveCallback stops delivery until a new callback is set.
func (s *Subscriber[T]) RemoveCallback() {
	s.cb.Store(nil)
}

// PublisherCount returns the number of matched publishers, best effort.
func (s *Subscriber[T]) PublisherCount() int {
	return s.reader.PublisherCount()
}

// Close unsubscribes and clears the callback. A callback already running
// may still be finishing when Close returns.
func (s *Subscriber[T]) Close() error {
	s.cb.Store(nil)
	return s.reader.Close()
}

// receive never lets a bad frame escape: undecodable payloads are counted
// and dropped.
func (s *Subscriber[T]) receive(f transport.Frame) {
	cb := s.cb.Load()
	if cb == nil {
		s.metrics.recordDropped(s.topic, "no_callback")
		return
	}

	v, err := s.dec.Decode(f.Payload, f.DataType)
	if err != nil {
		s.metrics.recordDropped(s.topic, "decode")
		s.log.Debug().
			Err(err).
			Stringer("observed", f.DataType).
			Int("size", len(f.Payload)).
			Msg("Dropping undecodable message")
		return
	}

	s.metrics.recordReceived(s.topic, len(f.Payload))
	(*cb)(Received[T]{
		TopicName: f.Topic,
		Encoding:  f.DataType.Encoding,
		TypeName:  f.DataType.TypeName,
		Timestamp: f.Timestamp,
		Clock:     f.Clock,
		Payload:   codec.NewMessage(v),
	})
}

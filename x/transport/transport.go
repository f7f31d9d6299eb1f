// Package transport defines the untyped byte transport the typed layers sit
// on: topics carrying opaque payloads plus a datatype descriptor, and named
// services answering method calls.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/compose-network/courier/x/datatype"
	"github.com/compose-network/courier/x/payload"
)

var (
	ErrClosed        = errors.New("transport closed")
	ErrTopicMismatch = errors.New("topic datatype mismatch")
	ErrUnreachable   = errors.New("service instance unreachable")
	ErrEmptyName     = errors.New("empty topic or service name")
)

// Frame is one received message. Payload is borrowed from the transport and
// is only valid until the handler returns.
type Frame struct {
	Topic     string
	DataType  datatype.Descriptor
	Payload   []byte
	Timestamp time.Time
	// Clock counts sends of the publishing endpoint, starting at 1.
	Clock uint64
}

// Handler receives frames of one subscription, in send order, on a
// goroutine owned by the transport.
type Handler func(Frame)

// TopicWriter is the send side of a topic.
type TopicWriter interface {
	// Send publishes data. The transport does not retain data after Send returns.
	Send(ctx context.Context, data []byte, ts time.Time) error
	// SendWriter lets w serialize into a transport buffer. With zero-copy
	// disabled the transport materializes w into a fresh slice instead.
	SendWriter(ctx context.Context, w payload.Writer, ts time.Time) (payload.WriteResult, error)
	// SubscriberCount is the number of matched subscriptions, best effort.
	SubscriberCount() int
	Close() error
}

// TopicReader is the receive side of a topic.
type TopicReader interface {
	PublisherCount() int
	Close() error
}

// InstanceID identifies one registered service instance.
type InstanceID struct {
	EntityID  string `json:"entity_id" msgpack:"e"`
	ProcessID int    `json:"process_id" msgpack:"p"`
	HostName  string `json:"host_name" msgpack:"h"`
}

// ServiceResponse is what an instance answered.
type ServiceResponse struct {
	Success  bool
	Payload  []byte
	ErrorMsg string
	Service  string
	Instance InstanceID
}

// ServiceHandler serves calls for a registered service. A non-nil error is
// reported to the caller as an unsuccessful response carrying its message.
type ServiceHandler func(ctx context.Context, method string, request []byte) ([]byte, error)

// ServiceRegistration is a registered service instance.
type ServiceRegistration interface {
	ID() InstanceID
	Close() error
}

// ServiceInstance is the client-side handle to one registered instance.
type ServiceInstance interface {
	ID() InstanceID
	// Call sends one request and blocks until the response arrives or ctx
	// ends. It returns ErrUnreachable when the instance is gone.
	Call(ctx context.Context, method string, request []byte) (ServiceResponse, error)
}

// Transport is a connected endpoint able to publish, subscribe, serve and call.
type Transport interface {
	Advertise(topic string, dt datatype.Descriptor, cfg payload.Config) (TopicWriter, error)
	Subscribe(topic string, dt datatype.Descriptor, h Handler) (TopicReader, error)
	RegisterService(name string, h ServiceHandler) (ServiceRegistration, error)
	// ServiceInstances returns a snapshot of known instances of name. It never blocks.
	ServiceInstances(name string) []ServiceInstance
	Close() error
}

// TopicInfo summarizes a topic for inspection.
type TopicInfo struct {
	Name        string `json:"name"`
	Encoding    string `json:"encoding"`
	TypeName    string `json:"type_name"`
	Publishers  int    `json:"publishers"`
	Subscribers int    `json:"subscribers"`
}

// ServiceInfo summarizes a service for inspection.
type ServiceInfo struct {
	Name      string       `json:"name"`
	Instances []InstanceID `json:"instances"`
}

// Inspector exposes the topic and service graph known to a transport.
type Inspector interface {
	Topics() []TopicInfo
	Services() []ServiceInfo
}

package tcp

import (
	"github.com/compose-network/courier/x/transport"
)

// kind tags every frame exchanged between a client and the hub.
type kind uint8

const (
	kindAdvertise kind = iota + 1
	kindUnadvertise
	kindSubscribe
	kindUnsubscribe
	kindPublish
	kindTopicStatus
	kindRegisterService
	kindUnregisterService
	kindServiceStatus
	kindCall
	kindResponse
)

func (k kind) String() string {
	switch k {
	case kindAdvertise:
		return "advertise"
	case kindUnadvertise:
		return "unadvertise"
	case kindSubscribe:
		return "subscribe"
	case kindUnsubscribe:
		return "unsubscribe"
	case kindPublish:
		return "publish"
	case kindTopicStatus:
		return "topic_status"
	case kindRegisterService:
		return "register_service"
	case kindUnregisterService:
		return "unregister_service"
	case kindServiceStatus:
		return "service_status"
	case kindCall:
		return "call"
	case kindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// header is the msgpack-encoded part of a frame. Which fields are set
// depends on Kind; the payload that follows is opaque.
type header struct {
	Kind kind `msgpack:"k"`

	Topic     string `msgpack:"t,omitempty"`
	Encoding  string `msgpack:"e,omitempty"`
	TypeName  string `msgpack:"n,omitempty"`
	Schema    []byte `msgpack:"s,omitempty"`
	Timestamp int64  `msgpack:"ts,omitempty"`
	Clock     uint64 `msgpack:"c,omitempty"`

	Compressed bool `msgpack:"z,omitempty"`

	Publishers  int `msgpack:"pc,omitempty"`
	Subscribers int `msgpack:"sc,omitempty"`

	Service   string                 `msgpack:"sv,omitempty"`
	Method    string                 `msgpack:"m,omitempty"`
	RequestID uint64                 `msgpack:"r,omitempty"`
	Instance  transport.InstanceID   `msgpack:"i,omitempty"`
	Instances []transport.InstanceID `msgpack:"is,omitempty"`

	Success     bool   `msgpack:"ok,omitempty"`
	Error       string `msgpack:"err,omitempty"`
	Unreachable bool   `msgpack:"u,omitempty"`
}

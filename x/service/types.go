// Package service invokes named methods on every registered instance of a
// service and classifies each attempt as executed, failed or timed out.
package service

import (
	"errors"

	"github.com/compose-network/courier/x/transport"
)

var (
	ErrCallTimeout         = errors.New("service call timed out")
	ErrInstanceUnreachable = errors.New("service instance unreachable")
	ErrCallFailed          = errors.New("service call failed")
	ErrMethodNotFound      = errors.New("method not found")
	ErrEmptyServiceName    = errors.New("empty service name")
)

// CallState is the terminal outcome of one call attempt on one instance.
type CallState int

const (
	// CallStateExecuted means the instance ran the method and reported success.
	CallStateExecuted CallState = iota + 1
	// CallStateFailed means the instance answered with success=false or could
	// not be reached.
	CallStateFailed
	// CallStateTimeouted means no response arrived before the deadline.
	CallStateTimeouted
)

func (s CallState) String() string {
	switch s {
	case CallStateExecuted:
		return "executed"
	case CallStateFailed:
		return "failed"
	case CallStateTimeouted:
		return "timeouted"
	default:
		return "unknown"
	}
}

// Request is one method invocation.
type Request struct {
	Method  string
	Payload []byte
}

// ServiceID identifies a server instance.
type ServiceID struct {
	EntityID  string `json:"entity_id"`
	ProcessID int    `json:"process_id"`
	HostName  string `json:"host_name"`
}

// ServerID names the instance that produced a response.
type ServerID struct {
	ServiceName string    `json:"service_name"`
	ServiceID   ServiceID `json:"service_id"`
}

// Response is what an instance answered.
type Response struct {
	Success  bool
	Payload  []byte
	ErrorMsg string
	ServerID ServerID
}

func serviceID(id transport.InstanceID) ServiceID {
	return ServiceID{EntityID: id.EntityID, ProcessID: id.ProcessID, HostName: id.HostName}
}

func responseFrom(r transport.ServiceResponse) *Response {
	return &Response{
		Success:  r.Success,
		Payload:  r.Payload,
		ErrorMsg: r.ErrorMsg,
		ServerID: ServerID{ServiceName: r.Service, ServiceID: serviceID(r.Instance)},
	}
}

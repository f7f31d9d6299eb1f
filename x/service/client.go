package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/transport"
)

// CallResult is the outcome of one call attempt on one instance. Exactly
// one State is set. Response is nil when nothing was received.
type CallResult struct {
	Instance ServiceID
	Method   string
	State    CallState
	Response *Response
	Err      error
	Elapsed  time.Duration
}

// Client calls the instances of one named service.
type Client struct {
	name    string
	tr      transport.Transport
	log     zerolog.Logger
	metrics *Metrics
}

// NewClient binds a client to serviceName on tr.
func NewClient(tr transport.Transport, serviceName string, opts ...Option) (*Client, error) {
	if serviceName == "" {
		return nil, ErrEmptyServiceName
	}
	cfg := applyOptions(opts)

	return &Client{
		name:    serviceName,
		tr:      tr,
		log:     cfg.log.With().Str("component", "service-client").Str("service", serviceName).Logger(),
		metrics: NewMetrics(),
	}, nil
}

// Name returns the bound service name.
func (c *Client) Name() string {
	return c.name
}

// Instances returns the instances currently known to the transport. The
// snapshot may be empty; it never waits for instances to appear.
func (c *Client) Instances() []*ClientInstance {
	found := c.tr.ServiceInstances(c.name)
	out := make([]*ClientInstance, 0, len(found))
	for _, inst := range found {
		out = append(out, &ClientInstance{client: c, inst: inst})
	}
	return out
}

// CallAll calls method once on every current instance, one after another.
// Every instance gets its own result; a failure or timeout on one does not
// stop the others.
func (c *Client) CallAll(ctx context.Context, method string, request []byte, timeout time.Duration) []CallResult {
	instances := c.Instances()
	results := make([]CallResult, 0, len(instances))
	for _, inst := range instances {
		results = append(results, inst.Call(ctx, method, request, timeout))
	}
	return results
}

// ClientInstance is one callable server instance.
type ClientInstance struct {
	client *Client
	inst   transport.ServiceInstance
}

// ID returns the instance identity.
func (i *ClientInstance) ID() ServiceID {
	return serviceID(i.inst.ID())
}

// Call invokes method and blocks until a response arrives, timeout elapses
// or the instance turns out unreachable. A zero timeout leaves the wait
// unbounded; only ctx can end it then. Calls are never retried.
func (i *ClientInstance) Call(ctx context.Context, method string, request []byte, timeout time.Duration) CallResult {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := i.inst.Call(callCtx, method, request)
	res := classify(resp, err, timeout)
	res.Instance = i.ID()
	res.Method = method
	res.Elapsed = time.Since(start)

	c := i.client
	c.metrics.RecordCall(c.name, method, res.State, res.Elapsed)

	ev := c.log.Debug()
	if res.State != CallStateExecuted {
		ev = c.log.Warn().Err(res.Err)
	}
	ev.Str("method", method).
		Str("entity_id", res.Instance.EntityID).
		Stringer("state", res.State).
		Dur("elapsed", res.Elapsed).
		Msg("Service call finished")

	return res
}

func classify(resp transport.ServiceResponse, err error, timeout time.Duration) CallResult {
	switch {
	case err == nil && resp.Success:
		return CallResult{State: CallStateExecuted, Response: responseFrom(resp)}

	case err == nil:
		r := responseFrom(resp)
		if r.ErrorMsg == "" {
			r.ErrorMsg = "unknown error"
		}
		return CallResult{
			State:    CallStateFailed,
			Response: r,
			Err:      fmt.Errorf("%w: %s", ErrCallFailed, r.ErrorMsg),
		}

	case errors.Is(err, context.DeadlineExceeded):
		return CallResult{
			State: CallStateTimeouted,
			Err:   fmt.Errorf("%w: no response within %s", ErrCallTimeout, timeout),
		}

	case errors.Is(err, transport.ErrUnreachable):
		return CallResult{
			State: CallStateFailed,
			Err:   fmt.Errorf("%w: %w", ErrInstanceUnreachable, err),
		}

	default:
		return CallResult{
			State: CallStateFailed,
			Err:   fmt.Errorf("%w: %w", ErrCallFailed, err),
		}
	}
}

package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/datatype"
	"github.com/compose-network/courier/x/payload"
	"github.com/compose-network/courier/x/transport"
)

// ClientConfig configures the connection to a hub.
type ClientConfig struct {
	Address           string        `mapstructure:"address" yaml:"address"`
	MaxMessageSize    int           `mapstructure:"max_message_size" yaml:"max_message_size"`
	CompressThreshold int           `mapstructure:"compress_threshold" yaml:"compress_threshold"`
	Timeouts          TimeoutConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// DefaultClientConfig returns the client defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Address:           "127.0.0.1:8470",
		MaxMessageSize:    64 * 1024 * 1024,
		CompressThreshold: 0,
		Timeouts:          DefaultTimeoutConfig(),
	}
}

var _ transport.Transport = (*Client)(nil)

// Client is a transport.Transport speaking to a Hub over one TCP connection.
type Client struct {
	cfg      ClientConfig
	codec    *Codec
	conn     *connection
	log      zerolog.Logger
	hostName string

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	readers       map[string]map[*topicReader]struct{}
	status        map[string]topicStatus
	services      map[string][]transport.InstanceID
	registrations map[string]*registration

	pending  sync.Map // request id -> chan callReply
	nextID   atomic.Uint64
	closed   atomic.Bool
	readDone chan struct{}
	handlers sync.WaitGroup
}

type topicStatus struct {
	publishers  int
	subscribers int
	encoding    string
	typeName    string
	schema      []byte
}

type callReply struct {
	h       *header
	payload []byte
}

// Dial connects to the hub at cfg.Address.
func Dial(ctx context.Context, cfg ClientConfig, log zerolog.Logger) (*Client, error) {
	codec, err := NewCodec(cfg.MaxMessageSize, cfg.CompressThreshold)
	if err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: cfg.Timeouts.Dial}
	netConn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		codec.Close()
		return nil, fmt.Errorf("failed to dial hub %s: %w", cfg.Address, err)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	log = log.With().Str("component", "tcp-client").Logger()
	c := &Client{
		cfg:           cfg,
		codec:         codec,
		conn:          newConnection(netConn, uuid.NewString(), codec, log, cfg.Timeouts),
		log:           log,
		hostName:      host,
		readers:       make(map[string]map[*topicReader]struct{}),
		status:        make(map[string]topicStatus),
		services:      make(map[string][]transport.InstanceID),
		registrations: make(map[string]*registration),
		readDone:      make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.readLoop()

	log.Info().Str("hub", cfg.Address).Msg("Connected to hub")
	return c, nil
}

// Info returns connection statistics.
func (c *Client) Info() ConnectionInfo {
	return c.conn.Info()
}

func (c *Client) write(h *header, payload []byte) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}
	if err := c.conn.writeFrame(h, payload); err != nil {
		if errors.Is(err, ErrFrameTooLarge) {
			return err
		}
		c.log.Warn().Err(err).Str("kind", h.Kind.String()).Msg("Write to hub failed, closing")
		_ = c.conn.Close()
		return fmt.Errorf("write %s: %w", h.Kind, err)
	}
	return nil
}

// Advertise announces a publisher on topic to the hub.
func (c *Client) Advertise(topic string, dt datatype.Descriptor, cfg payload.Config) (transport.TopicWriter, error) {
	if topic == "" {
		return nil, transport.ErrEmptyName
	}

	w := &topicWriter{c: c, topic: topic, dt: dt}
	if cfg.ZeroCopy {
		pool, err := payload.NewPool(cfg, c.log)
		if err != nil {
			return nil, err
		}
		w.pool = pool
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	err := c.write(&header{
		Kind:     kindAdvertise,
		Topic:    topic,
		Encoding: dt.Encoding,
		TypeName: dt.TypeName,
		Schema:   dt.Schema(),
	}, nil)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Subscribe announces a subscription on topic and dispatches matching frames to h.
func (c *Client) Subscribe(topic string, dt datatype.Descriptor, h transport.Handler) (transport.TopicReader, error) {
	if topic == "" {
		return nil, transport.ErrEmptyName
	}

	r := &topicReader{c: c, topic: topic, dispatcher: transport.NewDispatcher(h)}

	c.mu.Lock()
	if c.readers[topic] == nil {
		c.readers[topic] = make(map[*topicReader]struct{})
	}
	c.readers[topic][r] = struct{}{}
	c.mu.Unlock()

	err := c.write(&header{
		Kind:     kindSubscribe,
		Topic:    topic,
		Encoding: dt.Encoding,
		TypeName: dt.TypeName,
	}, nil)
	if err != nil {
		r.detach()
		return nil, err
	}
	return r, nil
}

// RegisterService registers an instance of service name with the hub.
func (c *Client) RegisterService(name string, h transport.ServiceHandler) (transport.ServiceRegistration, error) {
	if name == "" {
		return nil, transport.ErrEmptyName
	}

	reg := &registration{
		c:       c,
		service: name,
		handler: h,
		id: transport.InstanceID{
			EntityID:  uuid.NewString(),
			ProcessID: os.Getpid(),
			HostName:  c.hostName,
		},
	}

	c.mu.Lock()
	c.registrations[reg.id.EntityID] = reg
	c.mu.Unlock()

	if err := c.write(&header{Kind: kindRegisterService, Service: name, Instance: reg.id}, nil); err != nil {
		c.mu.Lock()
		delete(c.registrations, reg.id.EntityID)
		c.mu.Unlock()
		return nil, err
	}
	return reg, nil
}

// ServiceInstances returns the instances last announced by the hub.
func (c *Client) ServiceInstances(name string) []transport.ServiceInstance {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.services[name]
	out := make([]transport.ServiceInstance, 0, len(ids))
	for _, id := range ids {
		out = append(out, &remoteInstance{c: c, service: name, id: id})
	}
	return out
}

// Close drops the connection. In-flight calls fail as unreachable.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.cancel()
	err := c.conn.Close()
	<-c.readDone

	c.mu.Lock()
	var dispatchers []*transport.Dispatcher
	for _, readers := range c.readers {
		for r := range readers {
			dispatchers = append(dispatchers, r.dispatcher)
		}
	}
	c.readers = make(map[string]map[*topicReader]struct{})
	c.mu.Unlock()

	for _, d := range dispatchers {
		d.Close()
	}
	c.handlers.Wait()
	c.codec.Close()

	c.log.Info().Msg("Disconnected from hub")
	return err
}

func (c *Client) readLoop() {
	defer close(c.readDone)

	for {
		h, payload, err := c.conn.readFrame()
		if err != nil {
			if !c.closed.Load() && !errors.Is(err, io.EOF) {
				c.log.Warn().Err(err).Msg("Hub connection lost")
			}
			return
		}

		switch h.Kind {
		case kindPublish:
			c.dispatch(h, payload)
		case kindTopicStatus:
			c.mu.Lock()
			c.status[h.Topic] = topicStatus{
				publishers:  h.Publishers,
				subscribers: h.Subscribers,
				encoding:    h.Encoding,
				typeName:    h.TypeName,
				schema:      h.Schema,
			}
			c.mu.Unlock()
		case kindServiceStatus:
			c.mu.Lock()
			if len(h.Instances) == 0 {
				delete(c.services, h.Service)
			} else {
				c.services[h.Service] = h.Instances
			}
			c.mu.Unlock()
		case kindCall:
			c.serve(h, payload)
		case kindResponse:
			if ch, ok := c.pending.Load(h.RequestID); ok {
				select {
				case ch.(chan callReply) <- callReply{h: h, payload: payload}:
				default:
				}
			}
		default:
			c.log.Debug().Str("kind", h.Kind.String()).Msg("Ignoring frame")
		}
	}
}

// dispatch attaches the schema announced for the topic when the frame's
// encoding and type name match the announcing publisher's.
func (c *Client) dispatch(h *header, payload []byte) {
	c.mu.RLock()
	var schema []byte
	if st, ok := c.status[h.Topic]; ok && st.encoding == h.Encoding && st.typeName == h.TypeName {
		schema = st.schema
	}
	readers := make([]*topicReader, 0, len(c.readers[h.Topic]))
	for r := range c.readers[h.Topic] {
		readers = append(readers, r)
	}
	c.mu.RUnlock()

	f := transport.Frame{
		Topic:     h.Topic,
		DataType:  datatype.New(h.Encoding, h.TypeName, schema),
		Payload:   payload,
		Timestamp: time.Unix(0, h.Timestamp),
		Clock:     h.Clock,
	}
	for _, r := range readers {
		r.dispatcher.Enqueue(f, nil)
	}
}

// serve runs a registered handler off the read loop and writes its response.
func (c *Client) serve(h *header, request []byte) {
	c.mu.RLock()
	reg, ok := c.registrations[h.Instance.EntityID]
	c.mu.RUnlock()

	resp := &header{
		Kind:      kindResponse,
		RequestID: h.RequestID,
		Service:   h.Service,
		Instance:  h.Instance,
	}
	if !ok || reg.closed.Load() {
		resp.Unreachable = true
		_ = c.write(resp, nil)
		return
	}

	c.handlers.Add(1)
	go func() {
		defer c.handlers.Done()

		out, err := reg.handler(c.ctx, h.Method, request)
		if err != nil {
			resp.Error = err.Error()
			out = nil
		} else {
			resp.Success = true
		}
		if err := c.write(resp, out); err != nil && !c.closed.Load() {
			c.log.Warn().Err(err).Str("service", h.Service).Str("method", h.Method).Msg("Failed to send response")
		}
	}()
}

type topicWriter struct {
	c     *Client
	topic string
	dt    datatype.Descriptor
	pool  *payload.Pool
	clock atomic.Uint64

	closed atomic.Bool
}

func (w *topicWriter) publish(data []byte, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	return w.c.write(&header{
		Kind:      kindPublish,
		Topic:     w.topic,
		Encoding:  w.dt.Encoding,
		TypeName:  w.dt.TypeName,
		Timestamp: ts.UnixNano(),
		Clock:     w.clock.Add(1),
	}, data)
}

func (w *topicWriter) Send(ctx context.Context, data []byte, ts time.Time) error {
	if w.closed.Load() {
		return transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.publish(data, ts)
}

// SendWriter writes the pooled buffer straight to the socket. The buffer is
// acknowledged as soon as the frame is flushed.
func (w *topicWriter) SendWriter(ctx context.Context, pw payload.Writer, ts time.Time) (payload.WriteResult, error) {
	if w.closed.Load() {
		return payload.WriteResult{}, transport.ErrClosed
	}

	if w.pool == nil {
		data, err := payload.Bytes(pw)
		if err != nil {
			return payload.WriteResult{}, err
		}
		return payload.WriteResult{Size: len(data)}, w.Send(ctx, data, ts)
	}

	return w.pool.Write(ctx, pw, func(buf []byte, ack func()) error {
		defer ack()
		return w.publish(buf, ts)
	})
}

func (w *topicWriter) SubscriberCount() int {
	w.c.mu.RLock()
	defer w.c.mu.RUnlock()
	return w.c.status[w.topic].subscribers
}

func (w *topicWriter) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	if w.pool != nil {
		w.pool.Wait()
	}
	if w.c.closed.Load() {
		return nil
	}
	return w.c.write(&header{Kind: kindUnadvertise, Topic: w.topic}, nil)
}

type topicReader struct {
	c          *Client
	topic      string
	dispatcher *transport.Dispatcher

	closed atomic.Bool
}

func (r *topicReader) PublisherCount() int {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	return r.c.status[r.topic].publishers
}

func (r *topicReader) detach() {
	r.c.mu.Lock()
	if readers := r.c.readers[r.topic]; readers != nil {
		delete(readers, r)
		if len(readers) == 0 {
			delete(r.c.readers, r.topic)
		}
	}
	r.c.mu.Unlock()
	r.dispatcher.Close()
}

func (r *topicReader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.detach()
	if r.c.closed.Load() {
		return nil
	}
	return r.c.write(&header{Kind: kindUnsubscribe, Topic: r.topic}, nil)
}

type registration struct {
	c       *Client
	service string
	id      transport.InstanceID
	handler transport.ServiceHandler

	closed atomic.Bool
}

func (r *registration) ID() transport.InstanceID { return r.id }

func (r *registration) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.c.mu.Lock()
	delete(r.c.registrations, r.id.EntityID)
	r.c.mu.Unlock()
	if r.c.closed.Load() {
		return nil
	}
	return r.c.write(&header{Kind: kindUnregisterService, Service: r.service, Instance: r.id}, nil)
}

type remoteInstance struct {
	c       *Client
	service string
	id      transport.InstanceID
}

func (i *remoteInstance) ID() transport.InstanceID { return i.id }

func (i *remoteInstance) Call(ctx context.Context, method string, request []byte) (transport.ServiceResponse, error) {
	if i.c.closed.Load() {
		return transport.ServiceResponse{}, fmt.Errorf("%w: %s", transport.ErrUnreachable, transport.ErrClosed)
	}

	requestID := i.c.nextID.Add(1)
	replyCh := make(chan callReply, 1)
	i.c.pending.Store(requestID, replyCh)
	defer i.c.pending.Delete(requestID)

	err := i.c.write(&header{
		Kind:      kindCall,
		RequestID: requestID,
		Service:   i.service,
		Instance:  i.id,
		Method:    method,
	}, request)
	if err != nil {
		if errors.Is(err, ErrFrameTooLarge) {
			return transport.ServiceResponse{}, err
		}
		return transport.ServiceResponse{}, fmt.Errorf("%w: %w", transport.ErrUnreachable, err)
	}

	select {
	case <-ctx.Done():
		return transport.ServiceResponse{}, ctx.Err()
	case <-i.c.readDone:
		return transport.ServiceResponse{}, fmt.Errorf("%w: hub connection lost", transport.ErrUnreachable)
	case reply := <-replyCh:
		if reply.h.Unreachable {
			return transport.ServiceResponse{}, fmt.Errorf("%w: %s/%s", transport.ErrUnreachable, i.service, i.id.EntityID)
		}
		return transport.ServiceResponse{
			Success:  reply.h.Success,
			Payload:  reply.payload,
			ErrorMsg: reply.h.Error,
			Service:  reply.h.Service,
			Instance: reply.h.Instance,
		}, nil
	}
}

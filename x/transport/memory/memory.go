// Package memory is an in-process transport. Publishers, subscribers and
// service instances attached to the same Transport see each other.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/datatype"
	"github.com/compose-network/courier/x/payload"
	"github.com/compose-network/courier/x/transport"
)

var (
	_ transport.Transport = (*Transport)(nil)
	_ transport.Inspector = (*Transport)(nil)
)

// Transport is the in-process transport.
type Transport struct {
	log      zerolog.Logger
	hostName string

	mu       sync.RWMutex
	topics   map[string]*topic
	services map[string]map[string]*instance
	closed   bool
}

type topic struct {
	name    string
	dt      datatype.Descriptor
	writers map[*writer]struct{}
	readers map[*reader]struct{}
}

// New creates an empty transport.
func New(log zerolog.Logger) *Transport {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &Transport{
		log:      log.With().Str("component", "memory-transport").Logger(),
		hostName: host,
		topics:   make(map[string]*topic),
		services: make(map[string]map[string]*instance),
	}
}

// topicLocked returns the named topic, creating it on first use. An unused
// topic takes the datatype of whoever attaches next.
func (t *Transport) topicLocked(name string, dt datatype.Descriptor) *topic {
	tp, ok := t.topics[name]
	if !ok {
		tp = &topic{
			name:    name,
			dt:      dt,
			writers: make(map[*writer]struct{}),
			readers: make(map[*reader]struct{}),
		}
		t.topics[name] = tp
		return tp
	}
	if len(tp.writers) == 0 && len(tp.readers) == 0 {
		tp.dt = dt
	}
	return tp
}

// Advertise creates a writer on topic. Several writers may share a topic as
// long as they advertise the same encoding.
func (t *Transport) Advertise(name string, dt datatype.Descriptor, cfg payload.Config) (transport.TopicWriter, error) {
	if name == "" {
		return nil, transport.ErrEmptyName
	}

	w := &writer{t: t, dt: dt}
	if cfg.ZeroCopy {
		pool, err := payload.NewPool(cfg, t.log)
		if err != nil {
			return nil, err
		}
		w.pool = pool
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.ErrClosed
	}

	tp := t.topicLocked(name, dt)
	for other := range tp.writers {
		if other.dt.Encoding != dt.Encoding {
			return nil, fmt.Errorf("%w: %s advertised as %s, not %s", transport.ErrTopicMismatch, name, other.dt, dt)
		}
	}
	w.topic = tp
	tp.writers[w] = struct{}{}

	t.log.Debug().Str("topic", name).Stringer("datatype", dt).Bool("zero_copy", cfg.ZeroCopy).Msg("Publisher advertised")
	return w, nil
}

// Subscribe attaches h to topic. Frames are delivered in send order on a
// goroutine dedicated to this subscription.
func (t *Transport) Subscribe(name string, dt datatype.Descriptor, h transport.Handler) (transport.TopicReader, error) {
	if name == "" {
		return nil, transport.ErrEmptyName
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.ErrClosed
	}

	tp := t.topicLocked(name, dt)
	r := &reader{t: t, topic: tp, dt: dt, dispatcher: transport.NewDispatcher(h)}
	tp.readers[r] = struct{}{}

	t.log.Debug().Str("topic", name).Stringer("datatype", dt).Msg("Subscriber attached")
	return r, nil
}

// RegisterService adds one instance of service name.
func (t *Transport) RegisterService(name string, h transport.ServiceHandler) (transport.ServiceRegistration, error) {
	if name == "" {
		return nil, transport.ErrEmptyName
	}

	inst := &instance{
		t:       t,
		service: name,
		handler: h,
		id: transport.InstanceID{
			EntityID:  uuid.NewString(),
			ProcessID: os.Getpid(),
			HostName:  t.hostName,
		},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.ErrClosed
	}
	if t.services[name] == nil {
		t.services[name] = make(map[string]*instance)
	}
	t.services[name][inst.id.EntityID] = inst

	t.log.Debug().Str("service", name).Str("entity_id", inst.id.EntityID).Msg("Service registered")
	return inst, nil
}

// ServiceInstances returns the instances of name ordered by entity id.
func (t *Transport) ServiceInstances(name string) []transport.ServiceInstance {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]transport.ServiceInstance, 0, len(t.services[name]))
	for _, inst := range t.services[name] {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().EntityID < out[j].ID().EntityID })
	return out
}

// Topics implements transport.Inspector.
func (t *Transport) Topics() []transport.TopicInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]transport.TopicInfo, 0, len(t.topics))
	for _, tp := range t.topics {
		out = append(out, transport.TopicInfo{
			Name:        tp.name,
			Encoding:    tp.dt.Encoding,
			TypeName:    tp.dt.TypeName,
			Publishers:  len(tp.writers),
			Subscribers: len(tp.readers),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Services implements transport.Inspector.
func (t *Transport) Services() []transport.ServiceInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]transport.ServiceInfo, 0, len(t.services))
	for name, instances := range t.services {
		info := transport.ServiceInfo{Name: name}
		for _, inst := range instances {
			info.Instances = append(info.Instances, inst.id)
		}
		sort.Slice(info.Instances, func(i, j int) bool { return info.Instances[i].EntityID < info.Instances[j].EntityID })
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close detaches every endpoint. Pending frames are dropped.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var dispatchers []*transport.Dispatcher
	for _, tp := range t.topics {
		for r := range tp.readers {
			dispatchers = append(dispatchers, r.dispatcher)
		}
	}
	t.topics = make(map[string]*topic)
	t.services = make(map[string]map[string]*instance)
	t.mu.Unlock()

	for _, d := range dispatchers {
		d.Close()
	}
	return nil
}

type writer struct {
	t     *Transport
	topic *topic
	dt    datatype.Descriptor
	pool  *payload.Pool
	clock atomic.Uint64

	closed atomic.Bool
}

func (w *writer) frame(data []byte, ts time.Time) transport.Frame {
	if ts.IsZero() {
		ts = time.Now()
	}
	return transport.Frame{
		Topic:     w.topic.name,
		DataType:  w.dt,
		Payload:   data,
		Timestamp: ts,
		Clock:     w.clock.Add(1),
	}
}

func (w *writer) readers() []*reader {
	w.t.mu.RLock()
	defer w.t.mu.RUnlock()
	out := make([]*reader, 0, len(w.topic.readers))
	for r := range w.topic.readers {
		out = append(out, r)
	}
	return out
}

// Send copies data once; every subscriber reads the same copy.
func (w *writer) Send(ctx context.Context, data []byte, ts time.Time) error {
	if w.closed.Load() {
		return transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	readers := w.readers()
	f := w.frame(append([]byte(nil), data...), ts)
	for _, r := range readers {
		r.dispatcher.Enqueue(f, nil)
	}
	return nil
}

// SendWriter hands the pooled buffer itself to every subscriber when
// zero-copy is on. The buffer is acknowledged once the last subscriber
// handler has returned.
func (w *writer) SendWriter(ctx context.Context, pw payload.Writer, ts time.Time) (payload.WriteResult, error) {
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
		readers := w.readers()
		if len(readers) == 0 {
			ack()
			return nil
		}

		var remaining atomic.Int32
		remaining.Store(int32(len(readers)))
		release := func() {
			if remaining.Add(-1) == 0 {
				ack()
			}
		}

		f := w.frame(buf, ts)
		for _, r := range readers {
			r.dispatcher.Enqueue(f, release)
		}
		return nil
	})
}

func (w *writer) SubscriberCount() int {
	w.t.mu.RLock()
	defer w.t.mu.RUnlock()
	return len(w.topic.readers)
}

func (w *writer) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	w.t.mu.Lock()
	delete(w.topic.writers, w)
	w.t.mu.Unlock()
	if w.pool != nil {
		w.pool.Wait()
	}
	return nil
}

type reader struct {
	t          *Transport
	topic      *topic
	dt         datatype.Descriptor
	dispatcher *transport.Dispatcher

	closed atomic.Bool
}

func (r *reader) PublisherCount() int {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	return len(r.topic.writers)
}

func (r *reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.t.mu.Lock()
	delete(r.topic.readers, r)
	r.t.mu.Unlock()
	r.dispatcher.Close()
	return nil
}

type instance struct {
	t       *Transport
	service string
	id      transport.InstanceID
	handler transport.ServiceHandler

	closed atomic.Bool
}

func (i *instance) ID() transport.InstanceID { return i.id }

// Call runs the handler on its own goroutine so ctx can end the wait even if
// the handler never returns.
func (i *instance) Call(ctx context.Context, method string, request []byte) (transport.ServiceResponse, error) {
	if i.closed.Load() {
		return transport.ServiceResponse{}, fmt.Errorf("%w: %s/%s", transport.ErrUnreachable, i.service, i.id.EntityID)
	}

	req := append([]byte(nil), request...)
	result := make(chan transport.ServiceResponse, 1)
	go func() {
		resp := transport.ServiceResponse{Service: i.service, Instance: i.id}
		out, err := i.handler(ctx, method, req)
		if err != nil {
			resp.ErrorMsg = err.Error()
		} else {
			resp.Success = true
			resp.Payload = out
		}
		result <- resp
	}()

	select {
	case resp := <-result:
		return resp, nil
	case <-ctx.Done():
		return transport.ServiceResponse{}, ctx.Err()
	}
}

func (i *instance) Close() error {
	if i.closed.Swap(true) {
		return nil
	}
	i.t.mu.Lock()
	if instances := i.t.services[i.service]; instances != nil {
		delete(instances, i.id.EntityID)
		if len(instances) == 0 {
			delete(i.t.services, i.service)
		}
	}
	i.t.mu.Unlock()
	return nil
}

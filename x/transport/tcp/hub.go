package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/transport"
)

// HubConfig configures the hub listener.
type HubConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxConnections    int           `mapstructure:"max_connections" yaml:"max_connections"`
	MaxMessageSize    int           `mapstructure:"max_message_size" yaml:"max_message_size"`
	CompressThreshold int           `mapstructure:"compress_threshold" yaml:"compress_threshold"`
	SendQueueSize     int           `mapstructure:"send_queue_size" yaml:"send_queue_size"`
	Timeouts          TimeoutConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// DefaultHubConfig returns the hub defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		ListenAddr:        ":8470",
		MaxConnections:    1000,
		MaxMessageSize:    64 * 1024 * 1024,
		CompressThreshold: 0,
		SendQueueSize:     1024,
		Timeouts:          DefaultTimeoutConfig(),
	}
}

var _ transport.Inspector = (*Hub)(nil)

// Hub relays topic frames between connected clients and routes service calls
// to the connection that registered the target instance.
type Hub struct {
	cfg     HubConfig
	codec   *Codec
	log     zerolog.Logger
	metrics *Metrics

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	mu       sync.RWMutex
	peers    map[string]*peer
	topics   map[string]*hubTopic
	services map[string]map[string]*hubInstance
	calls    map[uint64]*pendingCall
	nextCall atomic.Uint64
}

type hubTopic struct {
	encoding    string
	typeName    string
	schema      []byte
	publishers  map[string]int
	subscribers map[string]int
}

func (t *hubTopic) empty() bool {
	return len(t.publishers) == 0 && len(t.subscribers) == 0
}

func (t *hubTopic) counts() (publishers, subscribers int) {
	for _, n := range t.publishers {
		publishers += n
	}
	for _, n := range t.subscribers {
		subscribers += n
	}
	return publishers, subscribers
}

type hubInstance struct {
	id    transport.InstanceID
	owner string
}

type pendingCall struct {
	caller    string
	requestID uint64
	owner     string
	service   string
	instance  transport.InstanceID
}

// NewHub creates a hub. Call Start to begin accepting connections.
func NewHub(cfg HubConfig, log zerolog.Logger) (*Hub, error) {
	codec, err := NewCodec(cfg.MaxMessageSize, cfg.CompressThreshold)
	if err != nil {
		return nil, err
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultHubConfig().SendQueueSize
	}

	return &Hub{
		cfg:      cfg,
		codec:    codec,
		log:      log.With().Str("component", "tcp-hub").Logger(),
		metrics:  NewMetrics(),
		peers:    make(map[string]*peer),
		topics:   make(map[string]*hubTopic),
		services: make(map[string]map[string]*hubInstance),
		calls:    make(map[uint64]*pendingCall),
	}, nil
}

// Start listens on the configured address and accepts connections in the background.
func (h *Hub) Start(ctx context.Context) error {
	if !h.running.CompareAndSwap(false, true) {
		return fmt.Errorf("hub already running")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", h.cfg.ListenAddr)
	if err != nil {
		h.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", h.cfg.ListenAddr, err)
	}
	h.listener = ln

	h.log.Info().Str("addr", ln.Addr().String()).Msg("Hub listening")

	h.wg.Add(1)
	go h.acceptLoop()
	return nil
}

// Addr returns the listener address once started.
func (h *Hub) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to finish or ctx to end.
func (h *Hub) Stop(ctx context.Context) error {
	if !h.running.CompareAndSwap(true, false) {
		return nil
	}

	_ = h.listener.Close()

	h.mu.RLock()
	for _, p := range h.peers {
		p.close()
	}
	h.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.codec.Close()
		h.log.Info().Msg("Hub stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) acceptLoop() {
	defer h.wg.Done()

	for {
		netConn, err := h.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !h.running.Load() {
				return
			}
			h.log.Error().Err(err).Msg("Failed to accept connection")
			h.metrics.RecordError("accept", "listener")
			continue
		}

		h.mu.RLock()
		full := h.cfg.MaxConnections > 0 && len(h.peers) >= h.cfg.MaxConnections
		h.mu.RUnlock()
		if full {
			h.log.Warn().Str("remote", netConn.RemoteAddr().String()).Msg("Connection limit reached, rejecting")
			h.metrics.RecordConnection("rejected")
			_ = netConn.Close()
			continue
		}

		h.wg.Add(1)
		go h.handleConn(netConn)
	}
}

func (h *Hub) handleConn(netConn net.Conn) {
	defer h.wg.Done()

	conn := newConnection(netConn, uuid.NewString(), h.codec, h.log, h.cfg.Timeouts)
	p := newPeer(conn, h.cfg.SendQueueSize, h.metrics)

	h.mu.Lock()
	h.peers[conn.ID()] = p
	statuses := make([]header, 0, len(h.services))
	for name := range h.services {
		statuses = append(statuses, h.serviceStatusLocked(name))
	}
	h.mu.Unlock()

	h.metrics.RecordConnection("accepted")
	conn.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Client connected")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		p.writeLoop(h.metrics)
	}()

	for i := range statuses {
		p.send(&statuses[i], nil)
	}

	for {
		hdr, payload, err := conn.readFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && h.running.Load() {
				conn.log.Debug().Err(err).Msg("Read failed, dropping connection")
				h.metrics.RecordError("read", "connection")
			}
			break
		}
		h.metrics.RecordFrame(hdr.Kind, "received", len(payload))
		h.handleFrame(p, hdr, payload)
	}

	h.dropPeer(p)
	h.metrics.RecordConnection("closed")
	h.metrics.RecordConnectionDuration(time.Since(conn.connectedAt))
	conn.log.Debug().Msg("Client disconnected")
}

func (h *Hub) handleFrame(p *peer, hdr *header, payload []byte) {
	switch hdr.Kind {
	case kindAdvertise, kindUnadvertise, kindSubscribe, kindUnsubscribe:
		h.updateTopic(p, hdr)
	case kindPublish:
		h.relay(hdr, payload)
	case kindRegisterService:
		h.registerService(p, hdr)
	case kindUnregisterService:
		h.unregisterService(hdr)
	case kindCall:
		h.routeCall(p, hdr, payload)
	case kindResponse:
		h.routeResponse(hdr, payload)
	default:
		p.conn.log.Warn().Uint8("kind", uint8(hdr.Kind)).Msg("Unexpected frame kind")
		h.metrics.RecordError("unexpected_kind", "handle")
	}
}

func (h *Hub) updateTopic(p *peer, hdr *header) {
	h.mu.Lock()
	t, ok := h.topics[hdr.Topic]
	if !ok {
		t = &hubTopic{publishers: make(map[string]int), subscribers: make(map[string]int)}
		h.topics[hdr.Topic] = t
	}
	if t.empty() {
		t.encoding, t.typeName, t.schema = hdr.Encoding, hdr.TypeName, nil
	}
	// subscribers learn the schema from the first publisher that carries one
	if hdr.Kind == kindAdvertise && len(hdr.Schema) > 0 && len(t.schema) == 0 {
		t.encoding, t.typeName, t.schema = hdr.Encoding, hdr.TypeName, hdr.Schema
	}

	id := p.conn.ID()
	switch hdr.Kind {
	case kindAdvertise:
		t.publishers[id]++
	case kindSubscribe:
		t.subscribers[id]++
	case kindUnadvertise:
		decrement(t.publishers, id)
	case kindUnsubscribe:
		decrement(t.subscribers, id)
	}

	status, members := h.topicStatusLocked(hdr.Topic, t)
	if t.empty() {
		delete(h.topics, hdr.Topic)
	}
	h.mu.Unlock()

	for _, m := range members {
		m.send(&status, nil)
	}
	// the sender may have just left the topic and still needs the update
	if hdr.Kind == kindUnadvertise || hdr.Kind == kindUnsubscribe {
		p.send(&status, nil)
	}
}

func decrement(m map[string]int, id string) {
	if m[id] <= 1 {
		delete(m, id)
		return
	}
	m[id]--
}

func (h *Hub) topicStatusLocked(name string, t *hubTopic) (header, []*peer) {
	pubs, subs := t.counts()
	status := header{
		Kind:        kindTopicStatus,
		Topic:       name,
		Encoding:    t.encoding,
		TypeName:    t.typeName,
		Schema:      t.schema,
		Publishers:  pubs,
		Subscribers: subs,
	}

	seen := make(map[string]bool)
	var members []*peer
	for _, ids := range []map[string]int{t.publishers, t.subscribers} {
		for id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if m, ok := h.peers[id]; ok {
				members = append(members, m)
			}
		}
	}
	return status, members
}

func (h *Hub) relay(hdr *header, payload []byte) {
	h.mu.RLock()
	var recipients []*peer
	if t, ok := h.topics[hdr.Topic]; ok {
		for id := range t.subscribers {
			if m, ok := h.peers[id]; ok {
				recipients = append(recipients, m)
			}
		}
	}
	h.mu.RUnlock()

	for _, m := range recipients {
		m.send(hdr, payload)
	}
	h.metrics.RecordRelay(len(recipients))
}

func (h *Hub) registerService(p *peer, hdr *header) {
	h.mu.Lock()
	if h.services[hdr.Service] == nil {
		h.services[hdr.Service] = make(map[string]*hubInstance)
	}
	h.services[hdr.Service][hdr.Instance.EntityID] = &hubInstance{id: hdr.Instance, owner: p.conn.ID()}
	status := h.serviceStatusLocked(hdr.Service)
	peers := h.peerListLocked()
	h.mu.Unlock()

	p.conn.log.Debug().Str("service", hdr.Service).Str("entity_id", hdr.Instance.EntityID).Msg("Service registered")
	for _, m := range peers {
		m.send(&status, nil)
	}
}

func (h *Hub) unregisterService(hdr *header) {
	h.mu.Lock()
	if instances := h.services[hdr.Service]; instances != nil {
		delete(instances, hdr.Instance.EntityID)
	}
	status := h.serviceStatusLocked(hdr.Service)
	if len(h.services[hdr.Service]) == 0 {
		delete(h.services, hdr.Service)
	}
	peers := h.peerListLocked()
	h.mu.Unlock()

	for _, m := range peers {
		m.send(&status, nil)
	}
}

func (h *Hub) serviceStatusLocked(name string) header {
	status := header{Kind: kindServiceStatus, Service: name}
	for _, inst := range h.services[name] {
		status.Instances = append(status.Instances, inst.id)
	}
	sort.Slice(status.Instances, func(i, j int) bool {
		return status.Instances[i].EntityID < status.Instances[j].EntityID
	})
	return status
}

func (h *Hub) peerListLocked() []*peer {
	out := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, p)
	}
	return out
}

func (h *Hub) routeCall(caller *peer, hdr *header, payload []byte) {
	h.mu.Lock()
	var owner *peer
	if inst, ok := h.services[hdr.Service][hdr.Instance.EntityID]; ok {
		owner = h.peers[inst.owner]
	}
	if owner == nil {
		h.mu.Unlock()
		caller.send(unreachable(hdr.RequestID, hdr.Service, hdr.Instance), nil)
		return
	}

	callID := h.nextCall.Add(1)
	h.calls[callID] = &pendingCall{
		caller:    caller.conn.ID(),
		requestID: hdr.RequestID,
		owner:     owner.conn.ID(),
		service:   hdr.Service,
		instance:  hdr.Instance,
	}
	h.mu.Unlock()

	fwd := *hdr
	fwd.RequestID = callID
	if !owner.send(&fwd, payload) {
		h.failCall(callID)
	}
}

func (h *Hub) routeResponse(hdr *header, payload []byte) {
	h.mu.Lock()
	pc, ok := h.calls[hdr.RequestID]
	delete(h.calls, hdr.RequestID)
	var caller *peer
	if ok {
		caller = h.peers[pc.caller]
	}
	h.mu.Unlock()

	if caller == nil {
		return
	}
	fwd := *hdr
	fwd.RequestID = pc.requestID
	caller.send(&fwd, payload)
}

func (h *Hub) failCall(callID uint64) {
	h.mu.Lock()
	pc, ok := h.calls[callID]
	delete(h.calls, callID)
	var caller *peer
	if ok {
		caller = h.peers[pc.caller]
	}
	h.mu.Unlock()

	if caller != nil {
		caller.send(unreachable(pc.requestID, pc.service, pc.instance), nil)
	}
}

func unreachable(requestID uint64, service string, instance transport.InstanceID) *header {
	return &header{
		Kind:        kindResponse,
		RequestID:   requestID,
		Service:     service,
		Instance:    instance,
		Unreachable: true,
	}
}

// dropPeer removes every trace of p and tells the remaining peers.
func (h *Hub) dropPeer(p *peer) {
	id := p.conn.ID()

	type notice struct {
		status  header
		members []*peer
	}
	var notices []notice

	h.mu.Lock()
	delete(h.peers, id)

	for name, t := range h.topics {
		_, pub := t.publishers[id]
		_, sub := t.subscribers[id]
		if !pub && !sub {
			continue
		}
		delete(t.publishers, id)
		delete(t.subscribers, id)
		status, members := h.topicStatusLocked(name, t)
		notices = append(notices, notice{status, members})
		if t.empty() {
			delete(h.topics, name)
		}
	}

	everyone := h.peerListLocked()
	for name, instances := range h.services {
		removed := false
		for entity, inst := range instances {
			if inst.owner == id {
				delete(instances, entity)
				removed = true
			}
		}
		if !removed {
			continue
		}
		notices = append(notices, notice{h.serviceStatusLocked(name), everyone})
		if len(instances) == 0 {
			delete(h.services, name)
		}
	}

	var orphaned []*pendingCall
	for callID, pc := range h.calls {
		switch id {
		case pc.owner:
			orphaned = append(orphaned, pc)
			delete(h.calls, callID)
		case pc.caller:
			delete(h.calls, callID)
		}
	}
	callers := make(map[string]*peer, len(orphaned))
	for _, pc := range orphaned {
		callers[pc.caller] = h.peers[pc.caller]
	}
	h.mu.Unlock()

	p.close()

	for i := range notices {
		for _, m := range notices[i].members {
			m.send(&notices[i].status, nil)
		}
	}
	for _, pc := range orphaned {
		if caller := callers[pc.caller]; caller != nil {
			caller.send(unreachable(pc.requestID, pc.service, pc.instance), nil)
		}
	}
}

// Topics implements transport.Inspector.
func (h *Hub) Topics() []transport.TopicInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]transport.TopicInfo, 0, len(h.topics))
	for name, t := range h.topics {
		pubs, subs := t.counts()
		out = append(out, transport.TopicInfo{
			Name:        name,
			Encoding:    t.encoding,
			TypeName:    t.typeName,
			Publishers:  pubs,
			Subscribers: subs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Services implements transport.Inspector.
func (h *Hub) Services() []transport.ServiceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]transport.ServiceInfo, 0, len(h.services))
	for name := range h.services {
		status := h.serviceStatusLocked(name)
		out = append(out, transport.ServiceInfo{Name: name, Instances: status.Instances})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Connections returns information about every live connection.
func (h *Hub) Connections() []ConnectionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ConnectionInfo, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, p.conn.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// peer is one hub-side connection with its outbound queue.
type peer struct {
	conn    *connection
	out     chan outFrame
	done    chan struct{}
	once    sync.Once
	metrics *Metrics
}

type outFrame struct {
	h       header
	payload []byte
}

func newPeer(conn *connection, queueSize int, m *Metrics) *peer {
	return &peer{
		conn:    conn,
		out:     make(chan outFrame, queueSize),
		done:    make(chan struct{}),
		metrics: m,
	}
}

// send queues a copy of h without blocking the caller, which is usually
// another peer's read loop. A peer whose queue is full is too slow to keep
// up and gets disconnected. send reports false once the peer is closed.
func (p *peer) send(h *header, payload []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.out <- outFrame{h: *h, payload: payload}:
		return true
	case <-p.done:
		return false
	default:
	}

	p.conn.log.Warn().
		Str("kind", h.Kind.String()).
		Int("queue_size", cap(p.out)).
		Msg("Send queue full, disconnecting slow peer")
	p.metrics.RecordError("queue_full", "send")
	p.close()
	return false
}

func (p *peer) writeLoop(m *Metrics) {
	for {
		select {
		case <-p.done:
			return
		case f := <-p.out:
			if err := p.conn.writeFrame(&f.h, f.payload); err != nil {
				p.conn.log.Debug().Err(err).Msg("Write failed, closing connection")
				m.RecordError("write", "connection")
				p.close()
				return
			}
			m.RecordFrame(f.h.Kind, "sent", len(f.payload))
		}
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

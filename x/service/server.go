package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/transport"
)

// MethodCallback serves one method. A returned error becomes an
// unsuccessful response carrying the error message.
type MethodCallback func(ctx context.Context, method string, request []byte) ([]byte, error)

// Server is one registered instance of a named service.
type Server struct {
	name    string
	reg     transport.ServiceRegistration
	log     zerolog.Logger
	metrics *Metrics

	mu      sync.RWMutex
	methods map[string]MethodCallback
}

// NewServer registers a new instance of serviceName on tr.
func NewServer(tr transport.Transport, serviceName string, opts ...Option) (*Server, error) {
	if serviceName == "" {
		return nil, ErrEmptyServiceName
	}
	cfg := applyOptions(opts)

	s := &Server{
		name:    serviceName,
		log:     cfg.log.With().Str("component", "service-server").Str("service", serviceName).Logger(),
		metrics: NewMetrics(),
		methods: make(map[string]MethodCallback),
	}

	reg, err := tr.RegisterService(serviceName, s.handle)
	if err != nil {
		return nil, fmt.Errorf("register service %q: %w", serviceName, err)
	}
	s.reg = reg

	s.log.Info().Str("entity_id", reg.ID().EntityID).Msg("Service registered")
	return s, nil
}

// ID returns the identity callers see for this instance.
func (s *Server) ID() ServiceID {
	return serviceID(s.reg.ID())
}

// AddMethod installs cb for method, replacing any previous callback.
func (s *Server) AddMethod(method string, cb MethodCallback) error {
	if method == "" {
		return errors.New("empty method name")
	}
	s.mu.Lock()
	s.methods[method] = cb
	s.mu.Unlock()
	return nil
}

// RemoveMethod uninstalls method. Later calls to it fail.
func (s *Server) RemoveMethod(method string) {
	s.mu.Lock()
	delete(s.methods, method)
	s.mu.Unlock()
}

// Methods returns the installed method names, sorted.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close unregisters the instance.
func (s *Server) Close() error {
	return s.reg.Close()
}

func (s *Server) handle(ctx context.Context, method string, request []byte) ([]byte, error) {
	s.mu.RLock()
	cb, ok := s.methods[method]
	s.mu.RUnlock()

	if !ok {
		s.metrics.RecordServed(s.name, method, false)
		return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, method)
	}

	out, err := cb(ctx, method, request)
	s.metrics.RecordServed(s.name, method, err == nil)
	if err != nil {
		s.log.Debug().Err(err).Str("method", method).Msg("Method failed")
		if err.Error() == "" {
			return nil, errors.New("method failed")
		}
		return nil, err
	}
	return out, nil
}

package codec

import (
	"sort"
	"strings"
	"sync"

	"github.com/compose-network/courier/x/datatype"
)

// Registry maps encoding names to structured formats.
type Registry interface {
	Register(format Format)
	// Get matches the encoding name exactly.
	Get(name string) (Format, bool)
	// Lookup resolves an observed encoding on the receive side. On top of
	// exact matches it accepts "msgpack" and "messagepack" in any case.
	Lookup(encoding string) (Format, bool)
	Names() []string
	Default() Format
}

// registry implements Registry interface
type registry struct {
	mu       sync.RWMutex
	formats  map[string]Format
	default_ string
}

// NewRegistry creates a registry holding JSON (the default), CBOR and MessagePack.
func NewRegistry() Registry {
	r := &registry{
		formats: make(map[string]Format),
	}

	r.Register(JSONFormat{})
	r.Register(CBORFormat{})
	r.Register(MsgpackFormat{})
	r.default_ = datatype.EncodingJSON

	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() Registry { return defaultRegistry }

// Register registers a format under its encoding name
func (r *registry) Register(format Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[format.Encoding()] = format
}

// Get retrieves a format by exact name
func (r *registry) Get(name string) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	format, exists := r.formats[name]
	return format, exists
}

// Lookup retrieves a format by observed encoding
func (r *registry) Lookup(encoding string) (Format, bool) {
	if format, ok := r.Get(encoding); ok {
		return format, true
	}
	if strings.EqualFold(encoding, datatype.EncodingMsgpack) || strings.EqualFold(encoding, "messagepack") {
		return r.Get(datatype.EncodingMsgpack)
	}
	return nil, false
}

// Names returns the registered encoding names, sorted
func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the default format
func (r *registry) Default() Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formats[r.default_]
}

package codec

import (
	"fmt"

	"github.com/compose-network/courier/x/datatype"
)

// Dynamic carries its format as a value. It advertises the concrete encoding
// of that format, and on receive picks the format named by the observed
// descriptor, whatever format it was built with. It interoperates with the
// fixed-format Structured codecs in both directions.
type Dynamic[T any] struct {
	format   Format
	registry Registry
	dt       datatype.Descriptor
}

// NewDynamic builds a dynamic codec sending with format.
func NewDynamic[T any](format Format) *Dynamic[T] {
	return &Dynamic[T]{
		format:   format,
		registry: DefaultRegistry(),
		dt:       datatype.New(format.Encoding(), shortTypeName[T](), nil),
	}
}

// NewDynamicFrom builds a dynamic codec sending with the format registered as
// name in r, e.g. from configuration.
func NewDynamicFrom[T any](r Registry, name string) (*Dynamic[T], error) {
	format, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	d := NewDynamic[T](format)
	d.registry = r
	return d, nil
}

// Format returns the send-side format.
func (d *Dynamic[T]) Format() Format { return d.format }

func (d *Dynamic[T]) DataType() datatype.Descriptor { return d.dt }

func (d *Dynamic[T]) Encode(v T) ([]byte, error) {
	return encodeWith(d.format, d.dt, v)
}

func (d *Dynamic[T]) Decode(data []byte, observed datatype.Descriptor) (T, error) {
	format, ok := d.registry.Lookup(observed.Encoding)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %w: %q", ErrDecode, ErrUnknownEncoding, observed.Encoding)
	}
	return decodeWith[T](format, data)
}

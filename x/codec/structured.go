package codec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/compose-network/courier/x/datatype"
)

// Structured encodes T with the format fixed by F. The encoding string it
// writes is exactly F's; on decode it also accepts the names the default
// registry resolves to F, such as "messagepack" for MessagePack.
type Structured[T any, F Format] struct {
	format F
	dt     datatype.Descriptor
}

// NewStructured builds the fixed-format codec for T.
func NewStructured[T any, F Format]() *Structured[T, F] {
	var f F
	return &Structured[T, F]{
		format: f,
		dt:     datatype.New(f.Encoding(), shortTypeName[T](), nil),
	}
}

// NewJSON returns the JSON codec for T.
func NewJSON[T any]() *Structured[T, JSONFormat] { return NewStructured[T, JSONFormat]() }

// NewCBOR returns the CBOR codec for T.
func NewCBOR[T any]() *Structured[T, CBORFormat] { return NewStructured[T, CBORFormat]() }

// NewMsgpack returns the MessagePack codec for T.
func NewMsgpack[T any]() *Structured[T, MsgpackFormat] { return NewStructured[T, MsgpackFormat]() }

func (s *Structured[T, F]) DataType() datatype.Descriptor { return s.dt }

func (s *Structured[T, F]) Encode(v T) ([]byte, error) {
	return encodeWith(s.format, s.dt, v)
}

func (s *Structured[T, F]) Decode(data []byte, observed datatype.Descriptor) (T, error) {
	if !s.accepts(observed) {
		var zero T
		return zero, mismatch(s.dt, observed)
	}
	return decodeWith[T](s.format, data)
}

func (s *Structured[T, F]) accepts(observed datatype.Descriptor) bool {
	if s.dt.Compatible(observed) {
		return true
	}
	f, ok := DefaultRegistry().Lookup(observed.Encoding)
	return ok && f.Encoding() == s.format.Encoding()
}

func encodeWith[T any](f Format, dt datatype.Descriptor, v T) ([]byte, error) {
	data, err := f.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, dt, err)
	}
	return data, nil
}

func decodeWith[T any](f Format, data []byte) (T, error) {
	var out T
	if err := f.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %v", ErrDecode, f.Encoding(), err)
	}
	return out, nil
}

// shortTypeName is the unqualified name of T: no package path, no type arguments.
func shortTypeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// Package codec turns application payload values into wire bytes and back.
//
// A codec is bound to one payload type and one wire format. Encoders and
// decoders are separate so a type can be send-only or receive-only. The
// descriptor returned by DataType travels with every message and is what a
// receiving decoder checks before touching the bytes.
package codec

import (
	"errors"

	"github.com/compose-network/courier/x/datatype"
)

// Codec errors
var (
	// ErrEncode marks an outgoing value the format could not serialize. It
	// points at a bug in the caller's value, not at the transport.
	ErrEncode = errors.New("codec: encode failed")
	// ErrDecode marks an incoming message that was dropped.
	ErrDecode = errors.New("codec: decode failed")
	// ErrEncodingMismatch is returned when the observed descriptor advertises
	// a different encoding than the decoder handles.
	ErrEncodingMismatch = errors.New("codec: encoding mismatch")
	// ErrUnknownEncoding is returned when no registered format matches the
	// observed encoding.
	ErrUnknownEncoding = errors.New("codec: unknown encoding")
)

// Encoder serializes values of type T.
type Encoder[T any] interface {
	// DataType is constant for a given T and format.
	DataType() datatype.Descriptor
	Encode(v T) ([]byte, error)
}

// Decoder deserializes values of type T.
type Decoder[T any] interface {
	DataType() datatype.Descriptor
	// Decode never panics on malformed input; failures wrap ErrDecode.
	Decode(data []byte, observed datatype.Descriptor) (T, error)
}

// Codec is both sides of one (type, format) pairing.
type Codec[T any] interface {
	Encoder[T]
	Decoder[T]
}

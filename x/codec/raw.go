package codec

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/compose-network/courier/x/datatype"
)

// RawCodec passes bytes through unchanged.
type RawCodec struct{}

var rawDataType = datatype.New(datatype.EncodingRaw, "bytes", nil)

// Raw returns the pass-through codec.
func Raw() RawCodec { return RawCodec{} }

func (RawCodec) DataType() datatype.Descriptor { return rawDataType }

func (RawCodec) Encode(v []byte) ([]byte, error) { return v, nil }

// Decode accepts any observed encoding so untyped senders can be read. The
// transport buffer may be reused after the callback returns, so the bytes are
// copied out.
func (RawCodec) Decode(data []byte, _ datatype.Descriptor) ([]byte, error) {
	return bytes.Clone(data), nil
}

// StringCodec carries UTF-8 text.
type StringCodec struct{}

var stringDataType = datatype.New(datatype.EncodingString, "string", nil)

// String returns the UTF-8 text codec.
func String() StringCodec { return StringCodec{} }

func (StringCodec) DataType() datatype.Descriptor { return stringDataType }

func (StringCodec) Encode(v string) ([]byte, error) {
	if !utf8.ValidString(v) {
		return nil, fmt.Errorf("%w: %s: invalid utf-8", ErrEncode, datatype.EncodingString)
	}
	return []byte(v), nil
}

func (StringCodec) Decode(data []byte, observed datatype.Descriptor) (string, error) {
	if !stringDataType.Compatible(observed) {
		return "", mismatch(stringDataType, observed)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s: invalid utf-8", ErrDecode, datatype.EncodingString)
	}
	return string(data), nil
}

func mismatch(local, observed datatype.Descriptor) error {
	return fmt.Errorf("%w: %w: want %q, got %q", ErrDecode, ErrEncodingMismatch, local.Encoding, observed.Encoding)
}

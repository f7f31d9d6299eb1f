package codec

import (
	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/compose-network/courier/x/datatype"
)

// Format selects one structured-data wire format.
type Format interface {
	// Encoding is the exact string advertised in descriptors.
	Encoding() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONFormat is the JSON format selector.
type JSONFormat struct{}

func (JSONFormat) Encoding() string                   { return datatype.EncodingJSON }
func (JSONFormat) ContentType() string                { return "application/json" }
func (JSONFormat) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONFormat) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBORFormat is the CBOR (RFC 8949) format selector.
type CBORFormat struct{}

func (CBORFormat) Encoding() string                   { return datatype.EncodingCBOR }
func (CBORFormat) ContentType() string                { return "application/cbor" }
func (CBORFormat) Marshal(v any) ([]byte, error)      { return cbor.Marshal(v) }
func (CBORFormat) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// MsgpackFormat is the MessagePack format selector.
type MsgpackFormat struct{}

func (MsgpackFormat) Encoding() string                   { return datatype.EncodingMsgpack }
func (MsgpackFormat) ContentType() string                { return "application/msgpack" }
func (MsgpackFormat) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackFormat) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

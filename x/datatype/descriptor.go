// Package datatype holds the metadata triple attached to every topic and message:
// the wire encoding name, the logical type name and an optional schema blob.
package datatype

import "bytes"

// Well-known encoding names. They are compared byte for byte.
const (
	EncodingRaw     = "raw"
	EncodingString  = "utf-8"
	EncodingProto   = "proto"
	EncodingJSON    = "json"
	EncodingCBOR    = "cbor"
	EncodingMsgpack = "msgpack"
)

// Descriptor identifies how a topic's payload is serialized.
// It is built once per endpoint and never mutated afterwards.
type Descriptor struct {
	Encoding string
	TypeName string
	schema   []byte
}

// New builds a descriptor. The schema bytes are copied.
func New(encoding, typeName string, schema []byte) Descriptor {
	d := Descriptor{Encoding: encoding, TypeName: typeName}
	if len(schema) > 0 {
		d.schema = bytes.Clone(schema)
	}
	return d
}

// Schema returns a copy of the schema bytes, nil when the format is self-describing.
func (d Descriptor) Schema() []byte {
	if len(d.schema) == 0 {
		return nil
	}
	return bytes.Clone(d.schema)
}

// HasSchema reports whether schema bytes are attached.
func (d Descriptor) HasSchema() bool {
	return len(d.schema) > 0
}

// Compatible reports whether bytes advertised with observed may be decoded by a
// reader expecting d. Only the encoding takes part, case-sensitive.
func (d Descriptor) Compatible(observed Descriptor) bool {
	return d.Encoding == observed.Encoding
}

// Equal compares all three fields.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Encoding == other.Encoding &&
		d.TypeName == other.TypeName &&
		bytes.Equal(d.schema, other.schema)
}

// String returns "encoding:type".
func (d Descriptor) String() string {
	return d.Encoding + ":" + d.TypeName
}

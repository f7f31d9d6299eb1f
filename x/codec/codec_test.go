package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	peoplepb "github.com/compose-network/courier/proto/people"
	"github.com/compose-network/courier/x/datatype"
)

type point struct {
	X     int      `json:"x" cbor:"x" msgpack:"x"`
	Y     int      `json:"y" cbor:"y" msgpack:"y"`
	Label string   `json:"label" cbor:"label" msgpack:"label"`
	Tags  []string `json:"tags" cbor:"tags" msgpack:"tags"`
}

type pair[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

func samplePoint() point {
	return point{X: 3, Y: -7, Label: "origin-ish", Tags: []string{"a", "b"}}
}

func samplePerson() *peoplepb.Person {
	return &peoplepb.Person{
		Id:    1,
		Name:  "Max",
		Email: "max@mail.net",
		Dog:   &peoplepb.Dog{Name: "Brandy", Colour: "Brown"},
		House: &peoplepb.House{Rooms: 4},
	}
}

func roundTrip[T any](t *testing.T, c Codec[T], v T) T {
	t.Helper()
	data, err := c.Encode(v)
	require.NoError(t, err)
	out, err := c.Decode(data, c.DataType())
	require.NoError(t, err)
	return out
}

func TestRoundTrip_Structured(t *testing.T) {
	t.Parallel()

	in := samplePoint()
	assert.Equal(t, in, roundTrip[point](t, NewJSON[point](), in))
	assert.Equal(t, in, roundTrip[point](t, NewCBOR[point](), in))
	assert.Equal(t, in, roundTrip[point](t, NewMsgpack[point](), in))
}

func TestRoundTrip_Raw(t *testing.T) {
	t.Parallel()

	in := []byte{0x00, 0x01, 0xfe, 0xff}
	assert.Equal(t, in, roundTrip[[]byte](t, Raw(), in))
}

func TestRaw_DecodeCopiesBuffer(t *testing.T) {
	t.Parallel()

	buf := []byte{1, 2, 3}
	out, err := Raw().Decode(buf, datatype.New("anything", "blob", nil))
	require.NoError(t, err)

	buf[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, out)
}

func TestRoundTrip_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "HELLO WORLD FROM GO", roundTrip[string](t, String(), "HELLO WORLD FROM GO"))
}

func TestString_RejectsInvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := String().Decode([]byte{0xff, 0xfe}, String().DataType())
	require.ErrorIs(t, err, ErrDecode)

	_, err = String().Encode(string([]byte{0xff}))
	require.ErrorIs(t, err, ErrEncode)
}

func TestRoundTrip_Protobuf(t *testing.T) {
	t.Parallel()

	c := NewProtobuf[peoplepb.Person]()
	in := samplePerson()

	out := roundTrip[*peoplepb.Person](t, c, in)
	assert.True(t, proto.Equal(in, out))
}

func TestProtobuf_DataType(t *testing.T) {
	t.Parallel()

	dt := NewProtobuf[peoplepb.Person]().DataType()
	assert.Equal(t, datatype.EncodingProto, dt.Encoding)
	assert.Equal(t, "pb.people.Person", dt.TypeName)
	require.True(t, dt.HasSchema())

	var set descriptorpb.FileDescriptorSet
	require.NoError(t, proto.Unmarshal(dt.Schema(), &set))
	require.Len(t, set.File, 1)
	assert.Equal(t, "people/people.proto", set.File[0].GetName())
	assert.Equal(t, "pb.people", set.File[0].GetPackage())
}

func TestProtobuf_MalformedBytes(t *testing.T) {
	t.Parallel()

	c := NewProtobuf[peoplepb.Person]()
	// field 2 (name) claims 16 bytes but only 2 follow
	out, err := c.Decode([]byte{0x12, 0x10, 'M', 'a'}, c.DataType())
	require.ErrorIs(t, err, ErrDecode)
	assert.Nil(t, out)
}

// Marker enforcement is a compile-time property: peoplepb.Dog has no
// IsProtobufType method, so the following does not compile:
//
//	_ = NewProtobuf[peoplepb.Dog]()
var _ ProtobufType = (*peoplepb.Person)(nil)

func TestDataType_Consistency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		enc      datatype.Descriptor
		dec      datatype.Descriptor
		encoding string
	}{
		{"json", NewJSON[point]().DataType(), NewJSON[point]().DataType(), "json"},
		{"cbor", NewCBOR[point]().DataType(), NewCBOR[point]().DataType(), "cbor"},
		{"msgpack", NewMsgpack[point]().DataType(), NewMsgpack[point]().DataType(), "msgpack"},
		{"dynamic-msgpack", NewDynamic[point](MsgpackFormat{}).DataType(), NewMsgpack[point]().DataType(), "msgpack"},
		{"raw", Raw().DataType(), Raw().DataType(), "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.encoding, tt.enc.Encoding)
			assert.True(t, tt.dec.Compatible(tt.enc))
		})
	}
}

func TestShortTypeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "point", NewJSON[point]().DataType().TypeName)
	assert.Equal(t, "point", NewJSON[*point]().DataType().TypeName)
	assert.Equal(t, "pair", NewJSON[pair[string, int]]().DataType().TypeName)
	assert.Equal(t, "map[string]int", NewJSON[map[string]int]().DataType().TypeName)
}

func TestCrossFormat_DecodeReturnsAbsence(t *testing.T) {
	t.Parallel()

	cborCodec := NewCBOR[point]()
	jsonCodec := NewJSON[point]()

	data, err := cborCodec.Encode(samplePoint())
	require.NoError(t, err)

	// advertised as cbor: refused before touching the bytes
	out, err := jsonCodec.Decode(data, cborCodec.DataType())
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorIs(t, err, ErrEncodingMismatch)
	assert.Equal(t, point{}, out)

	// mislabeled as json: the JSON parser rejects the CBOR bytes
	out, err = jsonCodec.Decode(data, jsonCodec.DataType())
	require.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, point{}, out)
}

func TestStructured_TruncatedBuffer(t *testing.T) {
	t.Parallel()

	for _, c := range []Codec[point]{NewJSON[point](), NewCBOR[point](), NewMsgpack[point]()} {
		data, err := c.Encode(samplePoint())
		require.NoError(t, err)

		_, err = c.Decode(data[:len(data)/2], c.DataType())
		require.ErrorIs(t, err, ErrDecode, c.DataType().Encoding)
	}
}

func TestStructured_MsgpackAcceptsAliases(t *testing.T) {
	t.Parallel()

	in := samplePoint()
	fixed := NewMsgpack[point]()
	data, err := fixed.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "msgpack", fixed.DataType().Encoding)

	for _, alias := range []string{"messagepack", "MessagePack", "MSGPACK"} {
		out, err := fixed.Decode(data, datatype.New(alias, "point", nil))
		require.NoError(t, err, alias)
		assert.Equal(t, in, out)
	}

	for _, enc := range []string{"json", "cbor", "JSON", ""} {
		out, err := fixed.Decode(data, datatype.New(enc, "point", nil))
		require.ErrorIs(t, err, ErrEncodingMismatch, enc)
		assert.Equal(t, point{}, out)
	}

	// aliases only widen msgpack
	_, err = NewJSON[point]().Decode([]byte(`{}`), datatype.New("JSON", "point", nil))
	require.ErrorIs(t, err, ErrEncodingMismatch)
}

func TestStructured_EncodeFailure(t *testing.T) {
	t.Parallel()

	_, err := NewJSON[chan int]().Encode(make(chan int))
	require.ErrorIs(t, err, ErrEncode)
}

func TestDynamic_DispatchesOnObservedEncoding(t *testing.T) {
	t.Parallel()

	in := samplePoint()
	data, err := NewMsgpack[point]().Encode(in)
	require.NoError(t, err)

	// built for JSON, still decodes msgpack because the descriptor says so
	local := NewDynamic[point](JSONFormat{})
	out, err := local.Decode(data, datatype.New("msgpack", "point", nil))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	for _, alias := range []string{"MessagePack", "messagepack", "MSGPACK"} {
		out, err = local.Decode(data, datatype.New(alias, "point", nil))
		require.NoError(t, err, alias)
		assert.Equal(t, in, out)
	}
}

func TestDynamic_UnknownEncoding(t *testing.T) {
	t.Parallel()

	local := NewDynamic[point](JSONFormat{})
	data, err := local.Encode(samplePoint())
	require.NoError(t, err)

	for _, enc := range []string{"serde", "yaml", "JSON", ""} {
		out, err := local.Decode(data, datatype.New(enc, "point", nil))
		require.Error(t, err, enc)
		assert.True(t, errors.Is(err, ErrUnknownEncoding), enc)
		assert.Equal(t, point{}, out)
	}
}

func TestDynamic_InteropWithFixed(t *testing.T) {
	t.Parallel()

	in := samplePoint()

	dyn, err := NewDynamicFrom[point](DefaultRegistry(), "cbor")
	require.NoError(t, err)
	assert.Equal(t, "cbor", dyn.DataType().Encoding)

	data, err := dyn.Encode(in)
	require.NoError(t, err)
	fixed := NewCBOR[point]()
	out, err := fixed.Decode(data, dyn.DataType())
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = NewDynamicFrom[point](DefaultRegistry(), "serde")
	require.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestMessage_Immutable(t *testing.T) {
	t.Parallel()

	v := samplePoint()
	m := NewMessage(v)
	v.X = 100

	assert.Equal(t, 3, m.Get().X)

	got := m.Get()
	got.Label = "changed"
	assert.Equal(t, "origin-ish", m.Get().Label)

	var empty Message[point]
	assert.True(t, empty.IsZero())
	assert.Equal(t, point{}, empty.Get())
}

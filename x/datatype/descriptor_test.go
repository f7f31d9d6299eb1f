package datatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesSchema(t *testing.T) {
	t.Parallel()

	schema := []byte{1, 2, 3}
	d := New(EncodingProto, "pb.people.Person", schema)
	schema[0] = 0xff

	require.True(t, d.HasSchema())
	assert.Equal(t, []byte{1, 2, 3}, d.Schema())

	out := d.Schema()
	out[1] = 0xff
	assert.Equal(t, []byte{1, 2, 3}, d.Schema())
}

func TestNew_EmptySchema(t *testing.T) {
	t.Parallel()

	d := New(EncodingJSON, "Point", nil)
	assert.False(t, d.HasSchema())
	assert.Nil(t, d.Schema())
	assert.Equal(t, "json:Point", d.String())
}

func TestCompatible_EncodingOnly(t *testing.T) {
	t.Parallel()

	local := New(EncodingCBOR, "Point", nil)

	assert.True(t, local.Compatible(New(EncodingCBOR, "Other", []byte{9})))
	assert.False(t, local.Compatible(New(EncodingJSON, "Point", nil)))
	assert.False(t, local.Compatible(New("CBOR", "Point", nil)))
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := New(EncodingProto, "pb.people.Person", []byte{1})
	assert.True(t, a.Equal(New(EncodingProto, "pb.people.Person", []byte{1})))
	assert.False(t, a.Equal(New(EncodingProto, "pb.people.Person", nil)))
	assert.False(t, a.Equal(New(EncodingProto, "pb.people.Dog", []byte{1})))
}

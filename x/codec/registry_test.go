package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperJSON struct{ JSONFormat }

func (upperJSON) Encoding() string { return "json-v2" }

func TestRegistry_Default(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	def := r.Default()
	require.NotNil(t, def)
	assert.Equal(t, "json", def.Encoding())
	assert.Equal(t, []string{"cbor", "json", "msgpack"}, r.Names())
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(upperJSON{})

	got, ok := r.Get("json-v2")
	require.True(t, ok)
	assert.Equal(t, "application/json", got.ContentType())

	_, ok = r.Get("JSON-V2")
	assert.False(t, ok)
}

func TestRegistry_LookupAliases(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	got, ok := r.Lookup("messagepack")
	require.True(t, ok)
	assert.Equal(t, "msgpack", got.Encoding())

	got, ok = r.Lookup("MsgPack")
	require.True(t, ok)
	assert.Equal(t, "msgpack", got.Encoding())

	_, ok = r.Lookup("Json")
	assert.False(t, ok)

	_, ok = r.Get("messagepack")
	assert.False(t, ok)
}

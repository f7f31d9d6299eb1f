package tcp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/courier/x/transport"
)

func newCodec(t *testing.T, maxSize, threshold int) *Codec {
	t.Helper()
	c, err := NewCodec(maxSize, threshold)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()
	c := newCodec(t, 1<<20, 0)

	in := &header{
		Kind:      kindCall,
		Service:   "mirror",
		Method:    "echo",
		RequestID: 42,
		Instance:  transport.InstanceID{EntityID: "e-1", ProcessID: 7, HostName: "box"},
	}

	var buf bytes.Buffer
	n, err := c.WriteFrame(&buf, in, []byte("stressed"))
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)

	out, payload, size, err := c.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, n, size)
	assert.Equal(t, in, out)
	assert.Equal(t, []byte("stressed"), payload)
}

func TestCodec_EmptyPayload(t *testing.T) {
	t.Parallel()
	c := newCodec(t, 1<<20, 0)

	var buf bytes.Buffer
	_, err := c.WriteFrame(&buf, &header{Kind: kindSubscribe, Topic: "t"}, nil)
	require.NoError(t, err)

	out, payload, _, err := c.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, "t", out.Topic)
	assert.Nil(t, payload)
}

func TestCodec_Compression(t *testing.T) {
	t.Parallel()
	c := newCodec(t, 1<<20, 64)

	big := bytes.Repeat([]byte("courier"), 1000)
	var buf bytes.Buffer
	h := &header{Kind: kindPublish, Topic: "blob"}
	n, err := c.WriteFrame(&buf, h, big)
	require.NoError(t, err)
	assert.Less(t, n, len(big))

	out, payload, _, err := c.ReadFrame(&buf)
	require.NoError(t, err)
	assert.False(t, out.Compressed)
	assert.Equal(t, big, payload)

	// small payloads stay uncompressed
	buf.Reset()
	small := &header{Kind: kindPublish, Topic: "blob"}
	_, err = c.WriteFrame(&buf, small, []byte("tiny"))
	require.NoError(t, err)
	assert.False(t, small.Compressed)
}

func TestCodec_Limits(t *testing.T) {
	t.Parallel()
	c := newCodec(t, 64, 0)

	var buf bytes.Buffer
	_, err := c.WriteFrame(&buf, &header{Kind: kindPublish}, make([]byte, 128))
	require.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, buf.Len())

	prefix := binary.BigEndian.AppendUint32(nil, 1024)
	_, _, _, err = c.ReadFrame(bytes.NewReader(prefix))
	require.ErrorIs(t, err, ErrFrameTooLarge)

	_, _, _, err = c.ReadFrame(bytes.NewReader(binary.BigEndian.AppendUint32(nil, 0)))
	require.Error(t, err)

	// header length points past the frame
	frame := binary.BigEndian.AppendUint32(nil, 3)
	frame = binary.BigEndian.AppendUint16(frame, 50)
	frame = append(frame, 0x80)
	_, _, _, err = c.ReadFrame(bytes.NewReader(frame))
	require.ErrorContains(t, err, "data too short")

	_, err = NewCodec(0, 0)
	require.Error(t, err)
}

package tcp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	lengthPrefixSize = 4
	headerLenSize    = 2
)

var ErrFrameTooLarge = errors.New("frame exceeds max message size")

// Codec frames messages as
//
//	[4 byte total length][2 byte header length][msgpack header][payload]
//
// with big-endian lengths. The total length covers everything after itself.
// Payloads above the compression threshold are zstd-compressed.
type Codec struct {
	maxMessageSize    int
	compressThreshold int

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	prefixPool sync.Pool
}

// NewCodec creates a frame codec. A compressThreshold of zero disables compression.
func NewCodec(maxMessageSize, compressThreshold int) (*Codec, error) {
	if maxMessageSize <= 0 || maxMessageSize > math.MaxUint32 {
		return nil, fmt.Errorf("invalid max message size %d", maxMessageSize)
	}

	c := &Codec{
		maxMessageSize:    maxMessageSize,
		compressThreshold: compressThreshold,
		prefixPool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 0, 256)
				return &buf
			},
		},
	}

	if compressThreshold > 0 {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		c.encoder = enc
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxMessageSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	c.decoder = dec

	return c, nil
}

// WriteFrame writes h and payload to w. The payload is written as its own
// Write call so a buffered writer can pass large payloads straight through.
func (c *Codec) WriteFrame(w io.Writer, h *header, payload []byte) (int, error) {
	if c.encoder != nil && len(payload) > c.compressThreshold {
		payload = c.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		h.Compressed = true
	}

	hdr, err := msgpack.Marshal(h)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(hdr) > math.MaxUint16 {
		return 0, fmt.Errorf("header size %d exceeds %d", len(hdr), math.MaxUint16)
	}

	total := headerLenSize + len(hdr) + len(payload)
	if total > c.maxMessageSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, total, c.maxMessageSize)
	}

	bufPtr := c.prefixPool.Get().(*[]byte)
	defer c.prefixPool.Put(bufPtr)

	buf := (*bufPtr)[:0]
	buf = binary.BigEndian.AppendUint32(buf, uint32(total)) //nolint: gosec // bounded by maxMessageSize
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(hdr)))
	buf = append(buf, hdr...)
	*bufPtr = buf

	n, err := w.Write(buf)
	if err != nil {
		return n, err
	}
	if len(payload) == 0 {
		return n, nil
	}
	m, err := w.Write(payload)
	return n + m, err
}

// ReadFrame reads one frame. The returned payload is freshly allocated and
// already decompressed.
func (c *Codec) ReadFrame(r io.Reader) (*header, []byte, int, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, nil, 0, err
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length == 0 {
		return nil, nil, 0, fmt.Errorf("empty frame")
	}
	if int64(length) > int64(c.maxMessageSize) {
		return nil, nil, 0, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, c.maxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, 0, err
	}
	size := lengthPrefixSize + int(length)

	h, payload, err := c.decode(data)
	return h, payload, size, err
}

func (c *Codec) decode(data []byte) (*header, []byte, error) {
	if len(data) < headerLenSize {
		return nil, nil, fmt.Errorf("data too short for header length")
	}
	hlen := int(binary.BigEndian.Uint16(data[:headerLenSize]))
	if len(data) < headerLenSize+hlen {
		return nil, nil, fmt.Errorf("data too short for claimed header length")
	}

	var h header
	if err := msgpack.Unmarshal(data[headerLenSize:headerLenSize+hlen], &h); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal header: %w", err)
	}

	payload := data[headerLenSize+hlen:]
	if h.Compressed {
		out, err := c.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decompress payload: %w", err)
		}
		if len(out) > c.maxMessageSize {
			return nil, nil, fmt.Errorf("%w: decompressed %d > %d", ErrFrameTooLarge, len(out), c.maxMessageSize)
		}
		payload = out
		h.Compressed = false
	}
	if len(payload) == 0 {
		payload = nil
	}
	return &h, payload, nil
}

// MaxMessageSize returns the maximum frame size.
func (c *Codec) MaxMessageSize() int {
	return c.maxMessageSize
}

// Close releases the compression resources.
func (c *Codec) Close() {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	c.decoder.Close()
}

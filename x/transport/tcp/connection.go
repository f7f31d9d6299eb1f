package tcp

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// TimeoutConfig contains timeout settings for connection operations
type TimeoutConfig struct {
	Dial  time.Duration `mapstructure:"dial" yaml:"dial"`   // Timeout for establishing the connection (default: 5s)
	Read  time.Duration `mapstructure:"read" yaml:"read"`   // Idle timeout between frames, zero disables it (default: 0)
	Write time.Duration `mapstructure:"write" yaml:"write"` // Timeout for writing one frame (default: 20s)
}

// DefaultTimeoutConfig returns the timeout defaults
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Dial:  5 * time.Second,
		Read:  0,
		Write: 20 * time.Second,
	}
}

// ConnectionInfo describes a live connection.
type ConnectionInfo struct {
	ID            string    `json:"id"`
	RemoteAddr    string    `json:"remote_addr"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastSeen      time.Time `json:"last_seen"`
	FramesRead    uint64    `json:"frames_read"`
	FramesWritten uint64    `json:"frames_written"`
	BytesRead     uint64    `json:"bytes_read"`
	BytesWritten  uint64    `json:"bytes_written"`
}

// connection wraps a net.Conn with framing and buffered I/O
type connection struct {
	net.Conn
	id       string
	codec    *Codec
	log      zerolog.Logger
	timeouts TimeoutConfig

	connectedAt time.Time
	lastSeen    atomic.Int64

	// Buffered I/O
	reader  *bufio.Reader
	writer  *bufio.Writer
	writeMu sync.Mutex

	// Metrics
	framesRead    atomic.Uint64
	framesWritten atomic.Uint64
	bytesRead     atomic.Uint64
	bytesWritten  atomic.Uint64
}

// newConnection creates a new connection wrapper
func newConnection(netConn net.Conn, id string, codec *Codec, log zerolog.Logger, timeouts TimeoutConfig) *connection {
	now := time.Now()

	c := &connection{
		Conn:        netConn,
		id:          id,
		codec:       codec,
		log:         log.With().Str("conn_id", id).Logger(),
		timeouts:    timeouts,
		connectedAt: now,
		reader:      bufio.NewReaderSize(netConn, 16384),
		writer:      bufio.NewWriterSize(netConn, 16384),
	}
	c.lastSeen.Store(now.UnixNano())
	return c
}

// readFrame reads one frame
func (c *connection) readFrame() (*header, []byte, error) {
	if c.timeouts.Read > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.timeouts.Read)); err != nil {
			return nil, nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	h, payload, n, err := c.codec.ReadFrame(c.reader)
	if err != nil {
		return nil, nil, err
	}

	c.lastSeen.Store(time.Now().UnixNano())
	c.framesRead.Add(1)
	c.bytesRead.Add(uint64(n)) //nolint: gosec // n is non-negative

	return h, payload, nil
}

// writeFrame writes one frame and flushes it. Once it returns the payload
// is no longer referenced.
func (c *connection) writeFrame(h *header, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeouts.Write > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.timeouts.Write)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	n, err := c.codec.WriteFrame(c.writer, h, payload)
	if err != nil {
		return err
	}

	if err := c.writer.Flush(); err != nil {
		return err
	}

	c.framesWritten.Add(1)
	c.bytesWritten.Add(uint64(n)) //nolint: gosec // n is non-negative
	return nil
}

// ID returns the connection ID.
func (c *connection) ID() string {
	return c.id
}

// Info returns connection information.
func (c *connection) Info() ConnectionInfo {
	return ConnectionInfo{
		ID:            c.id,
		RemoteAddr:    c.RemoteAddr().String(),
		ConnectedAt:   c.connectedAt,
		LastSeen:      time.Unix(0, c.lastSeen.Load()),
		FramesRead:    c.framesRead.Load(),
		FramesWritten: c.framesWritten.Load(),
		BytesRead:     c.bytesRead.Load(),
		BytesWritten:  c.bytesWritten.Load(),
	}
}

package payload

import (
	"fmt"
	"time"
)

const (
	DefaultBufferCount        = 1
	DefaultAcknowledgeTimeout = 50 * time.Millisecond
)

// Config holds the per-publisher zero-copy settings.
type Config struct {
	ZeroCopy bool `mapstructure:"zero_copy" yaml:"zero_copy"`
	// BufferCount is the number of pooled buffers. More buffers trade memory
	// for less contention between consecutive sends.
	BufferCount int `mapstructure:"buffer_count" yaml:"buffer_count"`
	// AcknowledgeTimeout bounds how long a send waits for the transport to
	// release the buffer. Zero means do not wait.
	AcknowledgeTimeout time.Duration `mapstructure:"acknowledge_timeout" yaml:"acknowledge_timeout"`
}

// DefaultConfig returns copy mode with one buffer and a 50ms acknowledge timeout.
func DefaultConfig() Config {
	return Config{
		ZeroCopy:           false,
		BufferCount:        DefaultBufferCount,
		AcknowledgeTimeout: DefaultAcknowledgeTimeout,
	}
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.BufferCount < 1 {
		return fmt.Errorf("%w: buffer_count must be at least 1, got %d", ErrInvalidConfig, c.BufferCount)
	}
	if c.AcknowledgeTimeout < 0 {
		return fmt.Errorf("%w: acknowledge_timeout must not be negative, got %s", ErrInvalidConfig, c.AcknowledgeTimeout)
	}
	return nil
}

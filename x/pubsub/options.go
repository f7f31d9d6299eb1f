package pubsub

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/payload"
)

// Option configures a publisher or subscriber
type Option func(*config)

type config struct {
	payload payload.Config
	log     zerolog.Logger
}

func defaultConfig() config {
	return config{
		payload: payload.DefaultConfig(),
		log:     zerolog.Nop(),
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithPayloadConfig sets the zero-copy settings of a publisher
func WithPayloadConfig(cfg payload.Config) Option {
	return func(c *config) {
		c.payload = cfg
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// SendOption configures a single send
type SendOption func(*sendConfig)

type sendConfig struct {
	timestamp time.Time
}

// WithTimestamp overrides the send time carried with the message
func WithTimestamp(ts time.Time) SendOption {
	return func(c *sendConfig) {
		c.timestamp = ts
	}
}

package service

import (
	"github.com/rs/zerolog"
)

// Option configures a client or server
type Option func(*config)

type config struct {
	log zerolog.Logger
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

func applyOptions(opts []Option) config {
	cfg := config{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

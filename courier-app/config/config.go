package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/compose-network/courier/server/api"
	"github.com/compose-network/courier/x/payload"
	"github.com/compose-network/courier/x/transport/tcp"
)

// EnvPrefix namespaces environment overrides, e.g. COURIER_LOG_LEVEL.
const EnvPrefix = "COURIER"

// Config holds the complete application configuration
type Config struct {
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Publisher payload.Config  `mapstructure:"publisher" yaml:"publisher"`
	Service   ServiceConfig   `mapstructure:"service"   yaml:"service"`
	API       api.Config      `mapstructure:"api"       yaml:"api"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
	Log       LogConfig       `mapstructure:"log"       yaml:"log"`
}

// TransportConfig holds both ends of the TCP transport: the hub the
// `hub` command runs and the client every other command dials.
type TransportConfig struct {
	Hub    tcp.HubConfig    `mapstructure:"hub"    yaml:"hub"`
	Client tcp.ClientConfig `mapstructure:"client" yaml:"client"`
}

// ServiceConfig holds service call settings
type ServiceConfig struct {
	// CallTimeout bounds each call to one instance. Zero waits indefinitely.
	CallTimeout  time.Duration `mapstructure:"call_timeout"  yaml:"call_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// Load reads configPath, when set, on top of the defaults and applies
// environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	hub := tcp.DefaultHubConfig()
	v.SetDefault("transport.hub.listen_addr", hub.ListenAddr)
	v.SetDefault("transport.hub.max_connections", hub.MaxConnections)
	v.SetDefault("transport.hub.max_message_size", hub.MaxMessageSize)
	v.SetDefault("transport.hub.compress_threshold", hub.CompressThreshold)
	v.SetDefault("transport.hub.send_queue_size", hub.SendQueueSize)
	v.SetDefault("transport.hub.timeouts.dial", hub.Timeouts.Dial)
	v.SetDefault("transport.hub.timeouts.read", hub.Timeouts.Read)
	v.SetDefault("transport.hub.timeouts.write", hub.Timeouts.Write)

	client := tcp.DefaultClientConfig()
	v.SetDefault("transport.client.address", client.Address)
	v.SetDefault("transport.client.max_message_size", client.MaxMessageSize)
	v.SetDefault("transport.client.compress_threshold", client.CompressThreshold)
	v.SetDefault("transport.client.timeouts.dial", client.Timeouts.Dial)
	v.SetDefault("transport.client.timeouts.read", client.Timeouts.Read)
	v.SetDefault("transport.client.timeouts.write", client.Timeouts.Write)

	pub := payload.DefaultConfig()
	v.SetDefault("publisher.zero_copy", pub.ZeroCopy)
	v.SetDefault("publisher.buffer_count", pub.BufferCount)
	v.SetDefault("publisher.acknowledge_timeout", pub.AcknowledgeTimeout)

	v.SetDefault("service.call_timeout", "1s")
	v.SetDefault("service.poll_interval", "1s")

	apiCfg := api.DefaultConfig()
	v.SetDefault("api.enabled", apiCfg.Enabled)
	v.SetDefault("api.listen_addr", apiCfg.ListenAddr)
	v.SetDefault("api.read_header_timeout", apiCfg.ReadHeaderTimeout)
	v.SetDefault("api.read_timeout", apiCfg.ReadTimeout)
	v.SetDefault("api.write_timeout", apiCfg.WriteTimeout)
	v.SetDefault("api.idle_timeout", apiCfg.IdleTimeout)
	v.SetDefault("api.shutdown_timeout", apiCfg.ShutdownTimeout)
	v.SetDefault("api.max_header_bytes", apiCfg.MaxHeaderBytes)
	v.SetDefault("api.cors", apiCfg.CORS)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.Publisher.Validate(); err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTransport() error {
	hub := c.Transport.Hub
	if strings.TrimSpace(hub.ListenAddr) == "" {
		return fmt.Errorf("transport.hub.listen_addr is required")
	}
	if hub.MaxMessageSize <= 0 {
		return fmt.Errorf("transport.hub.max_message_size must be positive, got %d", hub.MaxMessageSize)
	}
	if hub.MaxConnections <= 0 {
		return fmt.Errorf("transport.hub.max_connections must be positive, got %d", hub.MaxConnections)
	}

	client := c.Transport.Client
	if strings.TrimSpace(client.Address) == "" {
		return fmt.Errorf("transport.client.address is required")
	}
	if client.MaxMessageSize <= 0 {
		return fmt.Errorf("transport.client.max_message_size must be positive, got %d", client.MaxMessageSize)
	}
	if client.CompressThreshold < 0 || hub.CompressThreshold < 0 {
		return fmt.Errorf("transport compress_threshold must not be negative")
	}
	return nil
}

func (c *Config) validateService() error {
	if c.Service.CallTimeout < 0 {
		return fmt.Errorf("service.call_timeout must not be negative")
	}
	if c.Service.PollInterval <= 0 {
		return fmt.Errorf("service.poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path)
	}
	return nil
}

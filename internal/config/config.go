// Package config loads the YAML configuration that drives a gvsprecv
// process: which host/peer addresses to bind and hole-punch, how the
// frame buffer is sized, and whether the observability server is on.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete gvsprecv process configuration.
type Config struct {
	Receiver      ReceiverConfig      `yaml:"receiver"`
	Observability ObservabilityConfig `yaml:"observability"`
	Sink          SinkConfig          `yaml:"sink"`
	Logging       LogConfig           `yaml:"logging"`
}

// ReceiverConfig supplies the parameters the GVSP receiver's lifecycle
// operations need to bind a socket, size a frame buffer, and hole-punch
// to the camera.
type ReceiverConfig struct {
	HostAddr    string `yaml:"host_addr"`    // local interface to bind, e.g. "0.0.0.0"
	PeerAddr    string `yaml:"peer_addr"`    // camera IP to send the hole-punch datagram to
	PayloadSize int    `yaml:"payload_size"` // total bytes of one frame payload
	PacketSize  int    `yaml:"packet_size"`  // camera's configured packet size (includes 36-byte overhead)
	Verbose     bool   `yaml:"verbose"`
	Warnings    bool   `yaml:"warnings"`
}

// ObservabilityConfig controls the optional debug HTTP server.
type ObservabilityConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	MetricsPath string `yaml:"metrics_path"`
}

// SinkConfig controls the optional WebSocket frame-summary broadcast.
// When disabled, delivered frames are simply discarded after decoding
// (the consumer is expected to use the frame callback directly).
type SinkConfig struct {
	BroadcastEnabled bool   `yaml:"broadcast_enabled"`
	BroadcastPath    string `yaml:"broadcast_path"`
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Receiver: ReceiverConfig{
			HostAddr:    "0.0.0.0",
			PeerAddr:    "",
			PayloadSize: 0,
			PacketSize:  1500,
			Verbose:     false,
			Warnings:    true,
		},
		Observability: ObservabilityConfig{
			Enabled:     false,
			Address:     "127.0.0.1:9110",
			MetricsPath: "/metrics",
		},
		Sink: SinkConfig{
			BroadcastEnabled: false,
			BroadcastPath:    "/frames",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads config from a YAML file, applying defaults for missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values ahead of CreateBuffer so
// that configuration errors surface before the socket even opens.
func (c *Config) Validate() error {
	if c.Receiver.HostAddr == "" {
		return fmt.Errorf("receiver.host_addr is required")
	}
	if c.Receiver.PeerAddr == "" {
		return fmt.Errorf("receiver.peer_addr is required")
	}
	if c.Receiver.PayloadSize <= 0 {
		return fmt.Errorf("receiver.payload_size must be > 0, got %d", c.Receiver.PayloadSize)
	}
	if c.Receiver.PacketSize <= 36 {
		return fmt.Errorf("receiver.packet_size must be greater than the 36-byte GVSP overhead, got %d", c.Receiver.PacketSize)
	}
	packetPayloadSize := c.Receiver.PacketSize - 36
	if c.Receiver.PayloadSize%packetPayloadSize != 0 {
		return fmt.Errorf("receiver.payload_size (%d) must be a multiple of packet_size-36 (%d)", c.Receiver.PayloadSize, packetPayloadSize)
	}
	if c.Observability.Enabled && c.Observability.Address == "" {
		return fmt.Errorf("observability.address is required when observability is enabled")
	}
	return nil
}

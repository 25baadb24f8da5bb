// Package config handles configuration loading from YAML files and
// environment variables. Configuration is optional: with no file present the
// agent runs entirely on the built-in defaults (baud 115200, 1 s tick).
// Precedence: command line > environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "1s", "500ms", "2s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Monitor MonitorConfig `yaml:"monitor"`
	Console ConsoleConfig `yaml:"console"`
	Logging LoggingConfig `yaml:"logging"`
}

// SerialConfig holds display link settings.
type SerialConfig struct {
	// Port is the device path. Empty enables auto-discovery.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	// SettleDelay is the pause after opening the port before the first
	// write, giving the display time to reinitialize.
	SettleDelay Duration `yaml:"settle_delay"`
}

// MonitorConfig holds sampling loop settings.
type MonitorConfig struct {
	Interval         Duration `yaml:"interval"`
	ReconnectBackoff Duration `yaml:"reconnect_backoff"`
}

// ConsoleConfig holds the interactive status line settings.
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "",
			Baud:        115200,
			SettleDelay: Duration{2 * time.Second},
		},
		Monitor: MonitorConfig{
			Interval:         Duration{1 * time.Second},
			ReconnectBackoff: Duration{2 * time.Second},
		},
		Console: ConsoleConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromBytes parses YAML configuration and merges with defaults.
// Environment variables override values from the data.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}
	return LoadFromBytes(data)
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("SV_PORT"); port != "" {
		cfg.Serial.Port = port
	}
	if level := os.Getenv("SV_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks that the configuration can drive the monitor loop.
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial baud must be positive (got %d)", c.Serial.Baud)
	}
	if c.Monitor.Interval.Duration <= 0 {
		return fmt.Errorf("monitor interval must be positive (got %v)", c.Monitor.Interval.Duration)
	}
	if c.Monitor.ReconnectBackoff.Duration < 0 {
		return fmt.Errorf("reconnect backoff must not be negative (got %v)", c.Monitor.ReconnectBackoff.Duration)
	}
	return nil
}

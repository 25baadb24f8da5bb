package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Serial.Baud != 115200 {
		t.Errorf("Baud = %d, want 115200", cfg.Serial.Baud)
	}
	if cfg.Monitor.Interval.Duration != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.Monitor.Interval.Duration)
	}
	if cfg.Monitor.ReconnectBackoff.Duration != 2*time.Second {
		t.Errorf("ReconnectBackoff = %v, want 2s", cfg.Monitor.ReconnectBackoff.Duration)
	}
	if cfg.Serial.Port != "" {
		t.Errorf("Port = %q, want empty (auto-discovery)", cfg.Serial.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromBytes_OverridesDefaults(t *testing.T) {
	data := []byte(`
serial:
  port: /dev/ttyUSB3
  settle_delay: 500ms
monitor:
  interval: 2s
logging:
  level: debug
`)

	cfg, err := LoadFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Port != "/dev/ttyUSB3" {
		t.Errorf("Port = %q, want /dev/ttyUSB3", cfg.Serial.Port)
	}
	if cfg.Serial.SettleDelay.Duration != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 500ms", cfg.Serial.SettleDelay.Duration)
	}
	if cfg.Monitor.Interval.Duration != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", cfg.Monitor.Interval.Duration)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("Baud = %d, unset field should keep default", cfg.Serial.Baud)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadFromBytes_EnvOverridesFile(t *testing.T) {
	t.Setenv("SV_PORT", "/dev/ttyACM9")

	cfg, err := LoadFromBytes([]byte("serial:\n  port: /dev/ttyUSB0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Port != "/dev/ttyACM9" {
		t.Errorf("Port = %q, want env override", cfg.Serial.Port)
	}
}

func TestLoadFromBytes_InvalidDuration(t *testing.T) {
	_, err := LoadFromBytes([]byte("monitor:\n  interval: soon\n"))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("Baud = %d, want default", cfg.Serial.Baud)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("console:\n  enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Console.Enabled {
		t.Error("Console.Enabled = true, want false from file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }, true},
		{"zero interval", func(c *Config) { c.Monitor.Interval.Duration = 0 }, true},
		{"negative backoff", func(c *Config) { c.Monitor.ReconnectBackoff.Duration = -time.Second }, true},
		{"zero backoff allowed", func(c *Config) { c.Monitor.ReconnectBackoff.Duration = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

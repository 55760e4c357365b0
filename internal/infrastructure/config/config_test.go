package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "flat-3"
database:
  path: "/tmp/test.db"
gateway:
  tcp_port: 19002
  asr_key: "abc"
manager:
  sweep_interval: 500
transports:
  - name: radio0
    url: "serial:///dev/ttyUSB0?baud=57600"
    ports: [1, 2]
  - name: bridge
    url: "tcp://10.0.0.5:7000"
    ports: [1]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "flat-3" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "flat-3")
	}
	if cfg.Gateway.TCPPort != 19002 || cfg.Gateway.UDPPort != 18000 {
		t.Errorf("Gateway ports = %d/%d, want 19002/18000", cfg.Gateway.TCPPort, cfg.Gateway.UDPPort)
	}
	if cfg.GetSweepInterval() != 500*time.Millisecond {
		t.Errorf("GetSweepInterval() = %v, want 500ms", cfg.GetSweepInterval())
	}
	if cfg.Manager.LivenessLimit != 10 {
		t.Errorf("Manager.LivenessLimit = %d, want default 10", cfg.Manager.LivenessLimit)
	}
	if len(cfg.Transports) != 2 || len(cfg.Transports[0].Ports) != 2 {
		t.Errorf("Transports = %+v", cfg.Transports)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"missing site ID", func(c *Config) { c.Site.ID = "" }, "site.id"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"invalid api port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"api port ignored when disabled", func(c *Config) {
			c.API.Enabled = false
			c.API.Port = 0
		}, ""},
		{"invalid tcp port", func(c *Config) { c.Gateway.TCPPort = 0 }, "gateway.tcp_port"},
		{"zero sweep", func(c *Config) { c.Manager.SweepInterval = 0 }, "manager.sweep_interval"},
		{"influx without bucket", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.URL = "http://localhost:8086"
		}, "influxdb"},
		{"transport bad scheme", func(c *Config) {
			c.Transports = []TransportConfig{{Name: "r", URL: "usb://x", Ports: []uint16{1}}}
		}, "scheme"},
		{"transport without ports", func(c *Config) {
			c.Transports = []TransportConfig{{Name: "r", URL: "tcp://h:1"}}
		}, "ports"},
		{"duplicate transport", func(c *Config) {
			c.Transports = []TransportConfig{
				{Name: "r", URL: "tcp://h:1", Ports: []uint16{1}},
				{Name: "r", URL: "tcp://h:2", Ports: []uint16{1}},
			}
		}, "duplicated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Manager: ManagerConfig{TimerGrace: 3},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetTimerGrace(); got != 3*time.Second {
		t.Errorf("GetTimerGrace() = %v, want 3s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("HSB_DATABASE_PATH", "/custom/path.db")
	t.Setenv("HSB_MQTT_HOST", "mqtt.example.com")
	t.Setenv("HSB_MQTT_USERNAME", "testuser")
	t.Setenv("HSB_MQTT_PASSWORD", "testpass")
	t.Setenv("HSB_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("HSB_ASR_KEY", "asr")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Gateway.ASRKey != "asr" {
		t.Errorf("Gateway.ASRKey = %q, want %q", cfg.Gateway.ASRKey, "asr")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Gateway.TCPPort != 18002 {
		t.Errorf("defaultConfig Gateway.TCPPort = %d, want 18002", cfg.Gateway.TCPPort)
	}
	if cfg.Gateway.UDPPort != 18000 {
		t.Errorf("defaultConfig Gateway.UDPPort = %d, want 18000", cfg.Gateway.UDPPort)
	}
	if cfg.GetSweepInterval() != time.Second {
		t.Errorf("defaultConfig sweep = %v, want 1s", cfg.GetSweepInterval())
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}

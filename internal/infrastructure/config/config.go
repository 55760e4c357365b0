package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for HSB core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig        `yaml:"site"`
	Database   DatabaseConfig    `yaml:"database"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	API        APIConfig         `yaml:"api"`
	WebSocket  WebSocketConfig   `yaml:"websocket"`
	InfluxDB   InfluxDBConfig    `yaml:"influxdb"`
	Logging    LoggingConfig     `yaml:"logging"`
	Gateway    GatewayConfig     `yaml:"gateway"`
	Manager    ManagerConfig     `yaml:"manager"`
	Transports []TransportConfig `yaml:"transports"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// GatewayConfig contains the local client protocol settings.
type GatewayConfig struct {
	// Host is the listen address for the TCP and UDP sockets.
	Host string `yaml:"host"`

	// TCPPort carries the framed JSON client protocol.
	TCPPort int `yaml:"tcp_port"`

	// UDPPort answers discovery probes.
	UDPPort int `yaml:"udp_port"`

	// MDNS advertises the TCP service as _hsb._tcp.
	MDNS bool `yaml:"mdns"`

	// ASRKey is handed to clients by get_asrkey.
	ASRKey string `yaml:"asr_key"`
}

// ManagerConfig contains dispatcher settings.
type ManagerConfig struct {
	// SweepInterval is the housekeeping period in milliseconds.
	SweepInterval int `yaml:"sweep_interval"`

	// LivenessLimit is how many silent sweeps a node survives.
	LivenessLimit int `yaml:"liveness_limit"`

	// TimerGrace is how late, in seconds, a timer may still fire.
	TimerGrace int `yaml:"timer_grace"`
}

// TransportConfig describes one byte channel to the sub-network.
type TransportConfig struct {
	// Name identifies the transport in envelopes and logs.
	Name string `yaml:"name"`

	// URL is serial:///dev/ttyUSB0, unix:///run/hsb.sock or tcp://host:port.
	URL string `yaml:"url"`

	// BaudRate applies to serial channels without a ?baud= parameter.
	BaudRate int `yaml:"baud"`

	// Ports lists the sub-network ports, one driver each.
	Ports []uint16 `yaml:"ports"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HSB_SECTION_KEY
// For example: HSB_DATABASE_PATH, HSB_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "home",
			Name:     "HSB",
			Timezone: "Local",
		},
		Database: DatabaseConfig{
			Path:        "./data/hsb.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hsb-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Gateway: GatewayConfig{
			Host:    "0.0.0.0",
			TCPPort: 18002,
			UDPPort: 18000,
			MDNS:    true,
		},
		Manager: ManagerConfig{
			SweepInterval: 1000,
			LivenessLimit: 10,
			TimerGrace:    3,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HSB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HSB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HSB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HSB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HSB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HSB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Gateway
	if v := os.Getenv("HSB_ASR_KEY"); v != "" {
		cfg.Gateway.ASRKey = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Enabled && !validPort(c.API.Port) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if !validPort(c.Gateway.TCPPort) {
		errs = append(errs, "gateway.tcp_port must be between 1 and 65535")
	}
	if !validPort(c.Gateway.UDPPort) {
		errs = append(errs, "gateway.udp_port must be between 1 and 65535")
	}
	if c.Manager.SweepInterval <= 0 {
		errs = append(errs, "manager.sweep_interval must be positive")
	}
	if c.Manager.LivenessLimit <= 0 {
		errs = append(errs, "manager.liveness_limit must be positive")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when enabled")
	}

	names := make(map[string]bool, len(c.Transports))
	for i, t := range c.Transports {
		errs = append(errs, t.validate(i, names)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (t TransportConfig) validate(i int, seen map[string]bool) []string {
	var errs []string
	switch {
	case t.Name == "":
		errs = append(errs, fmt.Sprintf("transports[%d].name is required", i))
	case seen[t.Name]:
		errs = append(errs, fmt.Sprintf("transports[%d].name %q is duplicated", i, t.Name))
	}
	seen[t.Name] = true

	u, err := url.Parse(t.URL)
	switch {
	case t.URL == "" || err != nil:
		errs = append(errs, fmt.Sprintf("transports[%d].url is invalid", i))
	case u.Scheme != "serial" && u.Scheme != "unix" && u.Scheme != "tcp":
		errs = append(errs, fmt.Sprintf("transports[%d].url scheme must be serial, unix or tcp", i))
	}

	if len(t.Ports) == 0 {
		errs = append(errs, fmt.Sprintf("transports[%d].ports needs at least one port", i))
	}
	return errs
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetSweepInterval returns the manager sweep interval as a Duration.
func (c *Config) GetSweepInterval() time.Duration {
	return time.Duration(c.Manager.SweepInterval) * time.Millisecond
}

// GetTimerGrace returns the timer grace window as a Duration.
func (c *Config) GetTimerGrace() time.Duration {
	return time.Duration(c.Manager.TimerGrace) * time.Second
}

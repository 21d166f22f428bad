package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the OSC bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Client   ClientConfig   `yaml:"client"`
	Machine  MachineConfig  `yaml:"machine"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains the local UDP listen settings for the OSC server.
type ServerConfig struct {
	// Host is the local address to bind. Empty binds all interfaces.
	Host string `yaml:"host"`

	// Port is the local UDP port the OSC server listens on.
	Port int `yaml:"port"`
}

// ClientConfig contains the remote control-surface settings.
type ClientConfig struct {
	// Host is an optional fixed client address. When empty, the bridge
	// binds to the first client that sends a message.
	Host string `yaml:"host"`

	// Port is the UDP port replies are sent to on the bound client.
	Port int `yaml:"port"`
}

// MachineConfig describes the machine the bridge fronts.
type MachineConfig struct {
	// Type selects the hardware numbering scheme used by the name
	// decode fallback (e.g. "wpc", "sternSAM", "custom").
	Type string `yaml:"type"`

	// Simulated marks the deployment as running against simulated
	// hardware. Pre-closed switch seeding only applies when true.
	Simulated bool `yaml:"simulated"`

	// TickInterval is the host poll loop cadence in milliseconds.
	TickInterval int `yaml:"tick_interval"`

	// ClosedSwitches lists switch names marked closed at startup, used in
	// simulated deployments so a dashboard reflects a populated trough
	// before any real switch fires.
	ClosedSwitches []string `yaml:"closed_switches"`

	Switches []SwitchDef `yaml:"switches"`
	Lamps    []string    `yaml:"lamps"`
	LEDs     []string    `yaml:"leds"`
	Coils    []string    `yaml:"coils"`
}

// SwitchDef binds a switch name to its hardware number.
type SwitchDef struct {
	Name   string `yaml:"name"`
	Number int    `yaml:"number"`
}

// DatabaseConfig contains SQLite event-history settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT state-mirror settings.
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB event-metrics settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: OSCBRIDGE_SECTION_KEY
// For example: OSCBRIDGE_SERVER_PORT, OSCBRIDGE_DATABASE_PATH
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
//
// The default ports match the convention most OSC control surfaces ship
// with: the server listens on 9000 and clients listen on 8000.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 9000,
		},
		Client: ClientConfig{
			Port: 8000,
		},
		Machine: MachineConfig{
			Type:         "custom",
			Simulated:    true,
			TickInterval: 16,
		},
		Database: DatabaseConfig{
			Path:        "./data/oscbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "oscbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: OSCBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("OSCBRIDGE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("OSCBRIDGE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Client
	if v := os.Getenv("OSCBRIDGE_CLIENT_HOST"); v != "" {
		cfg.Client.Host = v
	}
	if v := os.Getenv("OSCBRIDGE_CLIENT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Client.Port = port
		}
	}

	// Database
	if v := os.Getenv("OSCBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("OSCBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("OSCBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("OSCBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("OSCBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Client.Port < 1 || c.Client.Port > 65535 {
		errs = append(errs, "client.port must be between 1 and 65535")
	}

	if c.Machine.Type == "" {
		errs = append(errs, "machine.type is required")
	}
	if c.Machine.TickInterval <= 0 {
		errs = append(errs, "machine.tick_interval must be positive")
	}

	// Switch numbers must be unique: outbound updates are keyed by name,
	// but the debounced event queue is keyed by number.
	seen := make(map[int]string, len(c.Machine.Switches))
	for _, sw := range c.Machine.Switches {
		if sw.Name == "" {
			errs = append(errs, "machine.switches entries require a name")
			continue
		}
		if prev, dup := seen[sw.Number]; dup {
			errs = append(errs, fmt.Sprintf("machine.switches: %q and %q share number %d", prev, sw.Name, sw.Number))
		}
		seen[sw.Number] = sw.Name
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTickInterval returns the host poll cadence as a Duration.
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Machine.TickInterval) * time.Millisecond
}

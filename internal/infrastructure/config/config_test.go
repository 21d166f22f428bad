package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9100
client:
  port: 8100
machine:
  type: "wpc"
  simulated: true
  tick_interval: 33
  closed_switches: ["trough1", "trough2"]
  switches:
    - name: "flipperL"
      number: 3
    - name: "rollover1"
      number: 17
  lamps: ["shootAgain"]
  coils: ["slingL"]
database:
  path: "/tmp/oscbridge-test.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Client.Port != 8100 {
		t.Errorf("Client.Port = %d, want 8100", cfg.Client.Port)
	}
	if cfg.Machine.Type != "wpc" {
		t.Errorf("Machine.Type = %q, want %q", cfg.Machine.Type, "wpc")
	}
	if len(cfg.Machine.Switches) != 2 || cfg.Machine.Switches[1].Number != 17 {
		t.Errorf("Machine.Switches = %+v, want rollover1 at number 17", cfg.Machine.Switches)
	}
	if len(cfg.Machine.ClosedSwitches) != 2 {
		t.Errorf("ClosedSwitches = %v, want 2 entries", cfg.Machine.ClosedSwitches)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "machine:\n  type: custom\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("default Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Client.Port != 8000 {
		t.Errorf("default Client.Port = %d, want 8000", cfg.Client.Port)
	}
	if cfg.Machine.TickInterval != 16 {
		t.Errorf("default Machine.TickInterval = %d, want 16", cfg.Machine.TickInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OSCBRIDGE_SERVER_PORT", "9999")
	t.Setenv("OSCBRIDGE_CLIENT_HOST", "10.0.0.42")
	t.Setenv("OSCBRIDGE_MQTT_PASSWORD", "hunter2")

	cfg, err := Load(writeConfig(t, "machine:\n  type: custom\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Client.Host != "10.0.0.42" {
		t.Errorf("Client.Host = %q, want env override", cfg.Client.Host)
	}
	if cfg.MQTT.Auth.Password != "hunter2" {
		t.Errorf("MQTT.Auth.Password not overridden from env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "bad server port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "missing machine type",
			mutate:  func(c *Config) { c.Machine.Type = "" },
			wantErr: "machine.type",
		},
		{
			name:    "zero tick interval",
			mutate:  func(c *Config) { c.Machine.TickInterval = 0 },
			wantErr: "tick_interval",
		},
		{
			name: "duplicate switch numbers",
			mutate: func(c *Config) {
				c.Machine.Switches = []SwitchDef{
					{Name: "a", Number: 4},
					{Name: "b", Number: 4},
				}
			},
			wantErr: "share number 4",
		},
		{
			name:    "bad qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Bucket = "b" },
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetTickInterval(t *testing.T) {
	cfg := defaultConfig()
	cfg.Machine.TickInterval = 250
	if got := cfg.GetTickInterval().Milliseconds(); got != 250 {
		t.Errorf("GetTickInterval() = %dms, want 250ms", got)
	}
}

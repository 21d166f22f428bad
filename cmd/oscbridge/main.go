// OSC Bridge - pinball control surface gateway
//
// This is the main entry point for the OSC bridge. The bridge fronts a
// pinball machine's device layer (switches, lamps, LEDs, coils) and
// exposes it to a remote OSC control surface over UDP:
//   - Inbound OSC messages drive device state
//   - Debounced switch transitions are echoed back each tick
//   - Switch history is persisted to SQLite
//   - Device state is optionally mirrored to MQTT and InfluxDB
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pinforge/oscbridge/internal/bridges/osc"
	"github.com/pinforge/oscbridge/internal/history"
	"github.com/pinforge/oscbridge/internal/infrastructure/config"
	"github.com/pinforge/oscbridge/internal/infrastructure/database"
	"github.com/pinforge/oscbridge/internal/infrastructure/influxdb"
	"github.com/pinforge/oscbridge/internal/infrastructure/logging"
	"github.com/pinforge/oscbridge/internal/infrastructure/mqtt"
	"github.com/pinforge/oscbridge/internal/machine"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// statsInterval is how often bridge counter snapshots are written to
// InfluxDB when metrics are enabled.
const statsInterval = 10 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting OSC bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the machine registry
	mach := machine.New(machine.Config{
		Type:     cfg.Machine.Type,
		Switches: switchDefs(cfg.Machine.Switches),
		Lamps:    cfg.Machine.Lamps,
		LEDs:     cfg.Machine.LEDs,
		Coils:    cfg.Machine.Coils,
	})
	mach.SetLogger(log.With("component", "machine"))
	log.Info("machine registry initialised",
		"type", cfg.Machine.Type,
		"switches", len(cfg.Machine.Switches),
		"lamps", len(cfg.Machine.Lamps),
		"leds", len(cfg.Machine.LEDs),
		"coils", len(cfg.Machine.Coils),
	)

	// Open the event history database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	hist, err := history.New(db)
	if err != nil {
		return fmt.Errorf("initialising event history: %w", err)
	}
	defer func() {
		log.Info("closing event history")
		if closeErr := hist.Close(); closeErr != nil {
			log.Error("error closing event history", "error", closeErr)
		}
	}()
	hist.SetLogger(log.With("component", "history"))
	mach.Events().AddRecorder(hist)

	// Connect to MQTT broker (optional state mirror)
	var mirror *stateMirror
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		mirror = &stateMirror{client: mqttClient, log: log}
	} else {
		log.Info("MQTT mirror disabled")
	}

	// Connect to InfluxDB (optional event metrics)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		mach.Events().AddRecorder(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the OSC server
	server, err := osc.Listen(osc.ServerConfig{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("starting OSC server: %w", err)
	}
	defer func() {
		log.Info("closing OSC server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing OSC server", "error", closeErr)
		}
	}()
	server.SetLogger(log.With("component", "osc"))
	log.Info("OSC server listening",
		"addr", server.LocalAddr().String(),
		"client_port", cfg.Client.Port,
	)

	// Wire the bridge between transport and machine
	session := osc.NewSession(osc.SessionConfig{
		ClientHost: cfg.Client.Host,
		ClientPort: cfg.Client.Port,
	})

	var publisher osc.StatePublisher
	if mirror != nil {
		publisher = mirror
	}
	bridge, err := osc.NewBridge(osc.BridgeOptions{
		Machine:   mach,
		Transport: server,
		Session:   session,
		Logger:    log.With("component", "bridge"),
		Publisher: publisher,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	server.SetOnMessage(bridge.HandleMessage)

	// Seed pre-closed switches for simulated deployments so the control
	// surface shows a populated trough before any real switch fires.
	if cfg.Machine.Simulated && len(cfg.Machine.ClosedSwitches) > 0 {
		seeded := mach.SeedClosedSwitches(cfg.Machine.ClosedSwitches)
		log.Info("seeded closed switches", "count", seeded)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mirror, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, entering host loop",
		"tick_interval", cfg.GetTickInterval(),
	)

	hostLoop(ctx, cfg.GetTickInterval(), mach, bridge, influxClient)

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. OSC server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Event history, then database

	log.Info("OSC bridge stopped")
	return nil
}

// hostLoop drives the bridge: each tick drains the debounced event queue
// into the machine, then runs outbound change detection. Bridge counter
// snapshots go to InfluxDB on a slower cadence.
func hostLoop(ctx context.Context, interval time.Duration, mach *machine.Machine, bridge *osc.Bridge, influxClient *influxdb.Client) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ev := range mach.Events().Drain() {
				// Apply errors mean an event for an unregistered number;
				// the bridge already logged the miss on receive.
				_ = mach.Apply(ev)
			}
			bridge.Tick()
		case <-statsTicker.C:
			if influxClient != nil {
				influxClient.WriteBridgeStats(statsFields(bridge.Stats()))
			}
		}
	}
}

// statsFields flattens bridge counters for the time-series writer.
func statsFields(stats osc.BridgeStats) map[string]interface{} {
	bound := 0
	if stats.SessionBound {
		bound = 1
	}
	return map[string]interface{}{
		"messages_rx":        stats.MessagesRx,
		"messages_tx":        stats.MessagesTx,
		"events_queued":      stats.EventsQueued,
		"unknown_categories": stats.UnknownCategories,
		"malformed_payloads": stats.MalformedPayloads,
		"device_misses":      stats.DeviceMisses,
		"resyncs":            stats.Resyncs,
		"session_bound":      bound,
	}
}

// switchDefs converts config switch definitions to machine registry form.
func switchDefs(defs []config.SwitchDef) []machine.SwitchDef {
	out := make([]machine.SwitchDef, 0, len(defs))
	for _, def := range defs {
		out = append(out, machine.SwitchDef{Name: def.Name, Number: def.Number})
	}
	return out
}

// getConfigPath returns the configuration file path.
// Uses OSCBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OSCBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT mirror and InfluxDB client may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mirror *stateMirror, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mirror != nil {
		if err := mirror.client.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// stateMirror adapts the infrastructure MQTT client to the bridge's
// StatePublisher interface, mirroring device state to retained topics so
// dashboards see current state on subscribe.
type stateMirror struct {
	client *mqtt.Client
	log    *logging.Logger
	topics mqtt.Topics
}

// PublishSwitchState implements osc.StatePublisher.
func (m *stateMirror) PublishSwitchState(name string, closed bool) {
	payload := fmt.Appendf(nil, `{"closed":%t}`, closed)
	if err := m.client.PublishRetained(m.topics.SwitchState(name), payload); err != nil {
		m.log.Debug("switch state mirror failed", "switch", name, "error", err)
	}
}

// PublishLEDState implements osc.StatePublisher.
func (m *stateMirror) PublishLEDState(target string, brightness uint8) {
	payload := fmt.Appendf(nil, `{"brightness":%d}`, brightness)
	if err := m.client.PublishRetained(m.topics.LEDState(target), payload); err != nil {
		m.log.Debug("led state mirror failed", "led", target, "error", err)
	}
}

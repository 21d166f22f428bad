package machine

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Machine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config describes the devices a Machine is built from.
type Config struct {
	// Type selects the hardware numbering scheme (see decode.go).
	Type string

	Switches []SwitchDef
	Lamps    []string
	LEDs     []string
	Coils    []string
}

// SwitchDef binds a switch name to its hardware number.
type SwitchDef struct {
	Name   string
	Number int
}

// Machine holds the device registries the bridge fronts: switches, lamps,
// LEDs, and coils, each keyed by name, plus the debounced event queue.
//
// The registries themselves are immutable after New; individual device
// state is internally synchronized, so all methods are safe for
// concurrent use.
type Machine struct {
	machineType string

	switchesByName   map[string]*Switch
	switchesByNumber map[int]*Switch
	switchNames      []string // sorted, for deterministic snapshots
	lamps            map[string]*Lamp
	leds             map[string]*LED
	coils            map[string]*Coil

	boardMu      sync.RWMutex
	boardOutputs map[BoardOutput]uint8

	events *EventQueue
	logger Logger
}

// New builds a Machine from configuration.
func New(cfg Config) *Machine {
	m := &Machine{
		machineType:      cfg.Type,
		switchesByName:   make(map[string]*Switch, len(cfg.Switches)),
		switchesByNumber: make(map[int]*Switch, len(cfg.Switches)),
		lamps:            make(map[string]*Lamp, len(cfg.Lamps)),
		leds:             make(map[string]*LED, len(cfg.LEDs)),
		coils:            make(map[string]*Coil, len(cfg.Coils)),
		boardOutputs:     make(map[BoardOutput]uint8),
		events:           NewEventQueue(),
		logger:           noopLogger{},
	}

	for _, def := range cfg.Switches {
		sw := &Switch{name: def.Name, number: def.Number}
		m.switchesByName[def.Name] = sw
		m.switchesByNumber[def.Number] = sw
		m.switchNames = append(m.switchNames, def.Name)
	}
	sort.Strings(m.switchNames)

	for _, name := range cfg.Lamps {
		m.lamps[name] = &Lamp{name: name}
	}
	for _, name := range cfg.LEDs {
		m.leds[name] = &LED{name: name}
	}
	for _, name := range cfg.Coils {
		m.coils[name] = &Coil{name: name}
	}

	return m
}

// SetLogger sets the logger for the machine.
func (m *Machine) SetLogger(logger Logger) {
	m.logger = logger
}

// Events returns the debounced event queue.
func (m *Machine) Events() *EventQueue {
	return m.events
}

// Type returns the configured machine type.
func (m *Machine) Type() string {
	return m.machineType
}

// LookupSwitch resolves a switch name to its hardware number.
func (m *Machine) LookupSwitch(name string) (int, bool) {
	sw, ok := m.switchesByName[name]
	if !ok {
		return 0, false
	}
	return sw.number, true
}

// DecodeName maps a symbolic switch name to a hardware number using the
// machine's numbering scheme. Used as the dispatcher's registry fallback.
func (m *Machine) DecodeName(name string) (int, error) {
	return DecodeSwitchNumber(m.machineType, name)
}

// Switches returns a snapshot of all switch states, ordered by name.
func (m *Machine) Switches() []SwitchState {
	states := make([]SwitchState, 0, len(m.switchNames))
	for _, name := range m.switchNames {
		sw := m.switchesByName[name]
		states = append(states, SwitchState{
			Name:        sw.name,
			Number:      sw.number,
			Closed:      sw.Closed(),
			LastChanged: sw.LastChanged(),
		})
	}
	return states
}

// Apply applies a debounced event to switch state. This is the host
// loop's half of the event queue: events drained from the queue land
// here, which in turn advances the last-changed markers the outbound
// synchronizer polls.
func (m *Machine) Apply(ev SwitchEvent) error {
	sw, ok := m.switchesByNumber[ev.Number]
	if !ok {
		return fmt.Errorf("%w: number %d", ErrSwitchNotFound, ev.Number)
	}
	sw.SetClosed(ev.Type == SwitchClosedDebounced)
	return nil
}

// EnableLamp turns a lamp fully on.
func (m *Machine) EnableLamp(name string) error {
	lamp, ok := m.lamps[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrLampNotFound, name)
	}
	lamp.Enable()
	return nil
}

// DisableLamp turns a lamp fully off.
func (m *Machine) DisableLamp(name string) error {
	lamp, ok := m.lamps[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrLampNotFound, name)
	}
	lamp.Disable()
	return nil
}

// ScheduleLamp drives a lamp with a 32-bit PWM mask.
func (m *Machine) ScheduleLamp(name string, mask uint32) error {
	lamp, ok := m.lamps[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrLampNotFound, name)
	}
	lamp.Schedule(mask)
	return nil
}

// Lamp returns a lamp by name, for state inspection.
func (m *Machine) Lamp(name string) (*Lamp, bool) {
	lamp, ok := m.lamps[name]
	return lamp, ok
}

// SetLEDBrightness sets a named LED's intensity.
func (m *Machine) SetLEDBrightness(name string, b uint8) error {
	led, ok := m.leds[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrLEDNotFound, name)
	}
	led.SetBrightness(b)
	return nil
}

// LED returns an LED by name, for state inspection.
func (m *Machine) LED(name string) (*LED, bool) {
	led, ok := m.leds[name]
	return led, ok
}

// SetBoardOutput writes an intensity to a raw driver-board output. Unknown
// board/output pairs are accepted: raw addressing exists precisely for
// outputs that have no configured name.
func (m *Machine) SetBoardOutput(board, output int, b uint8) error {
	m.boardMu.Lock()
	m.boardOutputs[BoardOutput{Board: board, Output: output}] = b
	m.boardMu.Unlock()

	m.logger.Debug("board output set", "board", board, "output", output, "brightness", b)
	return nil
}

// BoardOutputValue returns the last intensity written to a raw output.
func (m *Machine) BoardOutputValue(board, output int) (uint8, bool) {
	m.boardMu.RLock()
	defer m.boardMu.RUnlock()
	b, ok := m.boardOutputs[BoardOutput{Board: board, Output: output}]
	return b, ok
}

// PulseCoil fires a coil once.
func (m *Machine) PulseCoil(name string) error {
	coil, ok := m.coils[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCoilNotFound, name)
	}
	coil.Pulse()
	return nil
}

// Coil returns a coil by name, for state inspection.
func (m *Machine) Coil(name string) (*Coil, bool) {
	coil, ok := m.coils[name]
	return coil, ok
}

// SeedClosedSwitches appends closed events for the named switches,
// resolving each by registry lookup with the numeric decode fallback.
// It is used in simulated deployments to pre-populate trough and similar
// switches before any real switch fires. Returns the number of events
// queued; unresolvable names are logged and skipped.
func (m *Machine) SeedClosedSwitches(names []string) int {
	now := time.Now()
	seeded := 0
	for _, name := range names {
		number, ok := m.LookupSwitch(name)
		if !ok {
			decoded, err := m.DecodeName(name)
			if err != nil {
				m.logger.Warn("cannot seed closed switch", "name", name, "error", err)
				continue
			}
			number = decoded
		}
		m.events.Append(SwitchEvent{
			Type:   SwitchClosedDebounced,
			Number: number,
			At:     now,
		})
		seeded++
	}
	return seeded
}

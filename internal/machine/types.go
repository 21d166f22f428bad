package machine

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType identifies a debounced switch transition.
type EventType int

// Debounced switch event types. These correspond to the hardware driver's
// already-filtered transitions, ready for direct game-logic consumption.
const (
	SwitchClosedDebounced EventType = iota
	SwitchOpenDebounced
)

// String returns a human-readable event type name.
func (t EventType) String() string {
	switch t {
	case SwitchClosedDebounced:
		return "switch_closed"
	case SwitchOpenDebounced:
		return "switch_open"
	default:
		return "unknown"
	}
}

// SwitchEvent is a single debounced switch transition, keyed by the
// resolved hardware switch number.
type SwitchEvent struct {
	Type   EventType
	Number int
	At     time.Time
}

// Switch is a single playfield switch.
//
// State and last-changed timestamp use atomics: the device layer writes
// them from the host loop while the outbound synchronizer reads them from
// its own tick, and the timestamp is monotonic so lock-free reads are safe.
type Switch struct {
	name   string
	number int

	closed      atomic.Bool
	lastChanged atomic.Int64 // unix nanoseconds, 0 = never changed
}

// Name returns the switch name.
func (s *Switch) Name() string { return s.name }

// Number returns the hardware switch number.
func (s *Switch) Number() int { return s.number }

// Closed reports whether the switch is currently closed.
func (s *Switch) Closed() bool { return s.closed.Load() }

// SetClosed updates the switch state. The last-changed timestamp is only
// advanced on an actual transition, so repeated writes of the same value
// do not retrigger the synchronizer.
func (s *Switch) SetClosed(closed bool) {
	if s.closed.Swap(closed) != closed {
		s.lastChanged.Store(time.Now().UnixNano())
	}
}

// LastChanged returns the time of the last state transition, or the zero
// time if the switch has never changed.
func (s *Switch) LastChanged() time.Time {
	ns := s.lastChanged.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// SwitchState is a point-in-time snapshot of a switch, safe to hand to
// other packages without exposing the live registry entry.
type SwitchState struct {
	Name        string
	Number      int
	Closed      bool
	LastChanged time.Time
}

// LampMode describes how a lamp is currently driven.
type LampMode int

// Lamp drive modes.
const (
	LampOff LampMode = iota
	LampOn
	LampScheduled
)

// Lamp is a matrix lamp (or an LED wired to a lamp driver board). It is
// either fully on, fully off, or driven by a 32-bit PWM schedule mask.
type Lamp struct {
	name string

	mu       sync.Mutex
	mode     LampMode
	schedule uint32
}

// Name returns the lamp name.
func (l *Lamp) Name() string { return l.name }

// Enable turns the lamp fully on, clearing any schedule.
func (l *Lamp) Enable() {
	l.mu.Lock()
	l.mode = LampOn
	l.schedule = 0
	l.mu.Unlock()
}

// Disable turns the lamp fully off, clearing any schedule.
func (l *Lamp) Disable() {
	l.mu.Lock()
	l.mode = LampOff
	l.schedule = 0
	l.mu.Unlock()
}

// Schedule drives the lamp with a 32-bit PWM mask, applied immediately.
func (l *Lamp) Schedule(mask uint32) {
	l.mu.Lock()
	l.mode = LampScheduled
	l.schedule = mask
	l.mu.Unlock()
}

// State returns the current drive mode and schedule mask.
func (l *Lamp) State() (LampMode, uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode, l.schedule
}

// LED is a single-channel LED with 0-255 brightness.
type LED struct {
	name       string
	brightness atomic.Uint32
}

// Name returns the LED name.
func (l *LED) Name() string { return l.name }

// SetBrightness sets the LED intensity (0-255).
func (l *LED) SetBrightness(b uint8) {
	l.brightness.Store(uint32(b))
}

// Brightness returns the current LED intensity.
func (l *LED) Brightness() uint8 {
	return uint8(l.brightness.Load())
}

// Coil is a solenoid driver. The simulation only counts pulses.
type Coil struct {
	name   string
	pulses atomic.Uint64
}

// Name returns the coil name.
func (c *Coil) Name() string { return c.name }

// Pulse fires the coil once.
func (c *Coil) Pulse() {
	c.pulses.Add(1)
}

// Pulses returns the number of times the coil has fired.
func (c *Coil) Pulses() uint64 {
	return c.pulses.Load()
}

// BoardOutput addresses a raw driver-board output, used by the LED
// board/output addressing form (e.g. "+8-60" is output 60 on board 8).
type BoardOutput struct {
	Board  int
	Output int
}

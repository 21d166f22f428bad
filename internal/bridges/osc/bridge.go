package osc

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pinforge/oscbridge/internal/machine"
)

// Category identifies the routing class of a control message. Unknown is
// a first-class value: address tokens that match nothing route there and
// are counted, not errored.
type Category int

// Control message categories.
const (
	CategoryUnknown Category = iota
	CategorySwitch
	CategoryLamp
	CategoryLED
	CategoryCoil
	CategoryRefresh
)

// String returns the category's canonical address token.
func (c Category) String() string {
	switch c {
	case CategorySwitch:
		return "sw"
	case CategoryLamp:
		return "lamp"
	case CategoryLED:
		return "led"
	case CategoryCoil:
		return "coil"
	case CategoryRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// ParseCategory maps an address token to a category. Tokens are
// case-sensitive except the led/LED alias.
func ParseCategory(token string) Category {
	switch token {
	case "sw":
		return CategorySwitch
	case "lamp":
		return CategoryLamp
	case "led", "LED":
		return CategoryLED
	case "coil":
		return CategoryCoil
	case "refresh":
		return CategoryRefresh
	default:
		return CategoryUnknown
	}
}

// Outbound address tokens.
const (
	switchStateAddress = "/sw/"
	ledLabelAddress    = "/led-label/"
)

// StatePublisher mirrors device state to an external channel (MQTT in
// production). Optional; a nil publisher disables mirroring.
type StatePublisher interface {
	// PublishSwitchState publishes a switch transition.
	PublishSwitchState(name string, closed bool)

	// PublishLEDState publishes an LED brightness update.
	PublishLEDState(target string, brightness uint8)
}

// BridgeStats holds operational statistics.
type BridgeStats struct {
	MessagesRx        uint64
	MessagesTx        uint64
	EventsQueued      uint64
	UnknownCategories uint64
	MalformedPayloads uint64
	DeviceMisses      uint64
	Resyncs           uint64
	LastSync          time.Time
	SessionBound      bool
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Machine is the device layer the bridge fronts.
	Machine *machine.Machine

	// Transport sends outbound messages. Usually the *Server.
	Transport Transport

	// Session owns the client binding. Usually NewSession(cfg).
	Session *Session

	// Logger is optional structured logger.
	Logger Logger

	// Publisher is optional state mirroring (MQTT).
	// If nil, the bridge operates without mirroring.
	Publisher StatePublisher
}

// Bridge translates between OSC control messages and device state.
// It handles:
//   - Decoding inbound messages into typed switch/lamp/LED/coil actions
//   - Client session binding and full-state resync
//   - Per-tick change detection that echoes switch transitions outbound
//
// Thread Safety: HandleMessage runs on the transport's worker pool while
// Tick runs on the host loop; both are safe for concurrent use.
type Bridge struct {
	machine   *machine.Machine
	transport Transport
	session   *Session
	publisher StatePublisher

	// Previous-tick timestamp for change detection
	lastSyncMu sync.Mutex
	lastSync   time.Time

	// Logger
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	messagesRx        atomic.Uint64
	messagesTx        atomic.Uint64
	eventsQueued      atomic.Uint64
	unknownCategories atomic.Uint64
	malformedPayloads atomic.Uint64
	deviceMisses      atomic.Uint64
	resyncs           atomic.Uint64
}

// NewBridge creates a new bridge instance. Wire HandleMessage into the
// transport's receive callback and call Tick from the host loop.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Machine == nil {
		return nil, fmt.Errorf("machine is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("session is required")
	}

	return &Bridge{
		machine:   opts.Machine,
		transport: opts.Transport,
		session:   opts.Session,
		publisher: opts.Publisher, // May be nil (optional)
		logger:    opts.Logger,
	}, nil
}

// Session returns the client session.
func (b *Bridge) Session() *Session {
	return b.session
}

// HandleMessage routes one inbound control message.
//
// Refresh messages short-circuit to the session; every other category
// first binds the session to the sender (first contact establishes the
// session and applies the action in the same message), then dispatches
// to its handler. Unknown categories are counted and dropped. No failure
// here may propagate: a bad message is logged and forgotten.
func (b *Bridge) HandleMessage(msg Message, sender *net.UDPAddr) {
	b.messagesRx.Add(1)

	token, target, err := msg.Split()
	if err != nil {
		b.malformedPayloads.Add(1)
		b.logWarn("dropping message with bad address", "address", msg.Address, "error", err)
		return
	}

	category := ParseCategory(token)
	if category == CategoryUnknown {
		b.unknownCategories.Add(1)
		b.logDebug("ignoring unknown category", "category", token, "address", msg.Address)
		return
	}

	if bound := b.session.Observe(sender); bound {
		b.logInfo("client session bound",
			"session_id", b.session.ID(),
			"sender", sender.String())
	}

	switch category {
	case CategoryRefresh:
		b.session.RequestResync()
		b.logDebug("resync requested", "sender", sender.String())
	case CategorySwitch:
		b.handleSwitch(target, msg)
	case CategoryLamp:
		b.handleLamp(target, msg)
	case CategoryLED:
		b.handleLED(target, msg)
	case CategoryCoil:
		b.handleCoil(target)
	}
}

// resolveSwitch maps a switch target to its hardware number, trying the
// registry first and the numeric-decode fallback second.
func (b *Bridge) resolveSwitch(target string) (int, error) {
	if number, ok := b.machine.LookupSwitch(target); ok {
		return number, nil
	}
	return b.machine.DecodeName(target)
}

// handleSwitch converts a switch message into a debounced event. Only
// the exact values 1.0 (closed) and 0.0 (open) are defined; anything
// else is ignored without an event.
func (b *Bridge) handleSwitch(target string, msg Message) {
	number, err := b.resolveSwitch(target)
	if err != nil {
		b.deviceMisses.Add(1)
		b.logWarn("unknown switch ignored", "target", target, "error", err)
		return
	}

	value, err := msg.Float(0)
	if err != nil {
		b.malformedPayloads.Add(1)
		b.logWarn("dropping switch message with bad payload", "target", target, "error", err)
		return
	}

	var eventType machine.EventType
	switch value {
	case 1.0:
		eventType = machine.SwitchClosedDebounced
	case 0.0:
		eventType = machine.SwitchOpenDebounced
	default:
		b.logDebug("ignoring switch value", "target", target, "value", value)
		return
	}

	b.machine.Events().Append(machine.SwitchEvent{
		Type:   eventType,
		Number: number,
		At:     time.Now(),
	})
	b.eventsQueued.Add(1)
}

// handleLamp drives a lamp: >=1 full on, ==0 full off, anything between
// becomes a PWM schedule via the duty-cycle encoder.
func (b *Bridge) handleLamp(target string, msg Message) {
	value, err := msg.Float(0)
	if err != nil {
		b.malformedPayloads.Add(1)
		b.logWarn("dropping lamp message with bad payload", "target", target, "error", err)
		return
	}

	switch {
	case value >= 1:
		err = b.machine.EnableLamp(target)
	case value == 0:
		err = b.machine.DisableLamp(target)
	default:
		err = b.machine.ScheduleLamp(target, DutyCycleMask(value))
	}
	if err != nil {
		b.deviceMisses.Add(1)
		b.logWarn("unknown lamp ignored", "target", target, "error", err)
	}
}

// handleLED sets an LED intensity and always confirms with a led-label
// reply to the bound client. The target is either a configured LED name
// or a raw "+board-output" address.
func (b *Bridge) handleLED(target string, msg Message) {
	value, err := msg.Float(0)
	if err != nil {
		b.malformedPayloads.Add(1)
		b.logWarn("dropping LED message with bad payload", "target", target, "error", err)
		return
	}

	brightness := scaleBrightness(value)

	if board, output, ok := parseBoardOutput(target); ok {
		err = b.machine.SetBoardOutput(board, output, brightness)
	} else if strings.HasPrefix(target, "+") {
		b.malformedPayloads.Add(1)
		b.logWarn("dropping LED message with bad board address", "target", target)
		return
	} else {
		err = b.machine.SetLEDBrightness(target, brightness)
	}
	if err != nil {
		b.deviceMisses.Add(1)
		b.logWarn("unknown LED ignored", "target", target, "error", err)
	}

	// The reply confirms receipt, not device existence, so the control
	// surface can label its widget either way.
	b.sendLEDLabel(target, brightness)

	if b.publisher != nil && err == nil {
		b.publisher.PublishLEDState(target, brightness)
	}
}

// handleCoil pulses a coil. Payload is ignored beyond message presence.
func (b *Bridge) handleCoil(target string) {
	if err := b.machine.PulseCoil(target); err != nil {
		b.deviceMisses.Add(1)
		b.logWarn("unknown coil ignored", "target", target, "error", err)
	}
}

// scaleBrightness maps a [0,1] intensity to 0-255, clamping overshoot.
func scaleBrightness(value float64) uint8 {
	if value <= 0 {
		return 0
	}
	if value >= 1 {
		return 255
	}
	return uint8(value * 255)
}

// parseBoardOutput parses the raw "+<board>-<output>" LED address form.
func parseBoardOutput(target string) (board, output int, ok bool) {
	rest, found := strings.CutPrefix(target, "+")
	if !found {
		return 0, 0, false
	}
	boardStr, outputStr, found := strings.Cut(rest, "-")
	if !found {
		return 0, 0, false
	}
	board, err := strconv.Atoi(boardStr)
	if err != nil || board < 0 {
		return 0, 0, false
	}
	output, err = strconv.Atoi(outputStr)
	if err != nil || output < 0 {
		return 0, 0, false
	}
	return board, output, true
}

// sendLEDLabel sends the led-label confirmation reply for an LED update.
func (b *Bridge) sendLEDLabel(target string, brightness uint8) {
	remote, ok := b.session.Remote()
	if !ok {
		return
	}

	address := ledLabelAddress + target + "/" + strconv.Itoa(int(brightness))
	if err := b.transport.Send(NewMessage(address), remote); err != nil {
		b.logError("led-label reply failed", err)
		return
	}
	b.messagesTx.Add(1)
}

// Tick runs one pass of the outbound synchronizer.
//
// With a resync pending it broadcasts every switch state; otherwise it
// emits an update for each switch whose last change postdates the
// previous tick. The two branches are exclusive: a resync already
// carries every recent change. The previous-tick timestamp is always
// advanced, even when no client is bound, so a late-binding client is
// not flooded with history it never asked for.
func (b *Bridge) Tick() {
	now := time.Now()

	b.lastSyncMu.Lock()
	lastSync := b.lastSync
	b.lastSync = now
	b.lastSyncMu.Unlock()

	remote, ok := b.session.Remote()
	if !ok {
		return
	}

	if b.session.ConsumeResync() {
		b.resyncs.Add(1)
		states := b.machine.Switches()
		for _, state := range states {
			b.sendSwitchState(state, remote)
		}
		b.logInfo("full resync sent", "switches", len(states))
		return
	}

	for _, state := range b.machine.Switches() {
		if !state.LastChanged.IsZero() && state.LastChanged.After(lastSync) {
			b.sendSwitchState(state, remote)
		}
	}
}

// sendSwitchState emits one switch state echo to the client.
func (b *Bridge) sendSwitchState(state machine.SwitchState, remote *net.UDPAddr) {
	value := float32(0)
	if state.Closed {
		value = 1
	}

	if err := b.transport.Send(NewMessage(switchStateAddress+state.Name, value), remote); err != nil {
		if !errors.Is(err, ErrServerClosed) {
			b.logError("switch state send failed", err)
		}
		return
	}
	b.messagesTx.Add(1)

	if b.publisher != nil {
		b.publisher.PublishSwitchState(state.Name, state.Closed)
	}
}

// LastSync returns the previous-tick timestamp.
func (b *Bridge) LastSync() time.Time {
	b.lastSyncMu.Lock()
	defer b.lastSyncMu.Unlock()
	return b.lastSync
}

// Stats returns current operational statistics.
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		MessagesRx:        b.messagesRx.Load(),
		MessagesTx:        b.messagesTx.Load(),
		EventsQueued:      b.eventsQueued.Load(),
		UnknownCategories: b.unknownCategories.Load(),
		MalformedPayloads: b.malformedPayloads.Load(),
		DeviceMisses:      b.deviceMisses.Load(),
		Resyncs:           b.resyncs.Load(),
		LastSync:          b.LastSync(),
		SessionBound:      b.session.Bound(),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

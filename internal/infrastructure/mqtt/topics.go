package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the bridge's MQTT namespace.
//
// State topics follow the scheme: oscbridge/state/{device_kind}/{name}
// and are published retained so late subscribers see current state.
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "oscbridge"

	// TopicPrefixState is the base for device state topics.
	TopicPrefixState = "oscbridge/state"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "oscbridge/system"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.SwitchState("flipperL")
//	// Returns: "oscbridge/state/switch/flipperL"
type Topics struct{}

// SwitchState returns the retained state topic for a switch.
//
// Example: oscbridge/state/switch/flipperL
func (Topics) SwitchState(name string) string {
	return fmt.Sprintf("%s/switch/%s", TopicPrefixState, sanitizeSegment(name))
}

// LEDState returns the retained state topic for an LED target.
//
// Example: oscbridge/state/led/topLeftInsert
func (Topics) LEDState(target string) string {
	return fmt.Sprintf("%s/led/%s", TopicPrefixState, sanitizeSegment(target))
}

// SwitchEvent returns the topic for debounced switch events.
//
// Example: oscbridge/event/switch
func (Topics) SwitchEvent() string {
	return fmt.Sprintf("%s/event/switch", TopicPrefix)
}

// SystemStatus returns the system status topic.
//
// Example: oscbridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllStates returns a pattern matching all device state topics.
//
// Pattern: oscbridge/state/+/+
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixState)
}

// sanitizeSegment makes a device name safe as a topic segment. Raw LED
// board addresses start with "+", which is a wildcard in MQTT topics.
func sanitizeSegment(name string) string {
	name = strings.ReplaceAll(name, "+", "board-")
	name = strings.ReplaceAll(name, "#", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name
}

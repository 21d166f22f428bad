// Package mqtt provides the bridge's optional MQTT state mirror.
//
// When enabled, switch transitions and LED updates are published as
// retained state topics under oscbridge/state/ so dashboards and other
// subscribers see current machine state without speaking OSC. The client
// wraps paho.mqtt.golang with LWT-based offline detection, auto-reconnect,
// and graceful shutdown status.
package mqtt

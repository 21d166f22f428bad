// Package osc implements the bidirectional OSC-over-UDP control bridge.
//
// Inbound, a UDP listener decodes OSC datagrams and routes them by
// address category: /sw drives debounced switch events, /lamp drives
// on/off/PWM-scheduled lamps, /led (or /LED) sets LED intensities with a
// led-label confirmation reply, /coil pulses coils, and /refresh asks
// for a full state dump. Outbound, a per-tick synchronizer echoes switch
// transitions to the single bound client, detected by comparing each
// switch's last-changed marker against the previous tick.
//
// The client session is learned from the first inbound sender (subject
// to a configured host override) and replies target a fixed client port.
// Delivery is best-effort: loss is tolerated because the client can
// always request a resync.
package osc

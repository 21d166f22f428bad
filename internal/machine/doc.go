// Package machine models the controlled hardware: switches, lamps, LEDs,
// and coils, each registered by name, plus the debounced event queue the
// host game loop consumes.
//
// The package is the authoritative state the OSC bridge reads and writes.
// Inbound control messages resolve to devices here; the outbound
// synchronizer polls switch last-changed markers to detect what to send.
//
// # Concurrency
//
// Registries are immutable after New. Switch state and last-changed
// timestamps are atomics (timestamps only move forward, so lock-free
// polling is safe); lamps use a mutex; LEDs and coils are atomic.
// The event queue is mutex-serialised and supports pluggable recorders
// for persistence and metrics.
package machine

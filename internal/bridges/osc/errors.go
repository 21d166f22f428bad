package osc

import "errors"

// Domain errors for the OSC bridge package.
var (
	// ErrListenFailed is returned when the UDP socket cannot be bound.
	// This is fatal at startup.
	ErrListenFailed = errors.New("osc: listen failed")

	// ErrServerClosed is returned by operations on a closed server.
	ErrServerClosed = errors.New("osc: server closed")

	// ErrSendFailed is returned when writing a datagram fails.
	ErrSendFailed = errors.New("osc: send failed")

	// ErrMalformedPacket is returned when a datagram cannot be decoded
	// as an OSC message.
	ErrMalformedPacket = errors.New("osc: malformed packet")

	// ErrMalformedPayload is returned when a decoded message carries the
	// wrong argument arity or type for its category.
	ErrMalformedPayload = errors.New("osc: malformed payload")

	// ErrNotBound is returned when an outbound operation requires a bound
	// client session and none exists.
	ErrNotBound = errors.New("osc: no client session bound")
)

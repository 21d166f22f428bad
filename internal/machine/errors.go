package machine

import "errors"

// Domain errors for the machine package.
var (
	// ErrSwitchNotFound is returned when a switch number has no registry entry.
	ErrSwitchNotFound = errors.New("machine: switch not found")

	// ErrLampNotFound is returned when a lamp name has no registry entry.
	ErrLampNotFound = errors.New("machine: lamp not found")

	// ErrLEDNotFound is returned when an LED name has no registry entry.
	ErrLEDNotFound = errors.New("machine: led not found")

	// ErrCoilNotFound is returned when a coil name has no registry entry.
	ErrCoilNotFound = errors.New("machine: coil not found")

	// ErrBadSwitchName is returned when a symbolic switch name cannot be
	// decoded to a hardware number.
	ErrBadSwitchName = errors.New("machine: cannot decode switch name")
)

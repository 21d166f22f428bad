package machine

import (
	"fmt"
	"strconv"
	"strings"
)

// Machine types recognised by the switch-name decoder. Matrix decoding is
// only meaningful on platforms with a column/row switch matrix.
const (
	TypeWPC       = "wpc"
	TypeWhitestar = "sternWhitestar"
	TypeSternSAM  = "sternSAM"
	TypeCustom    = "custom"
)

// Switch numbering bases. Dedicated (direct-wired) switches occupy the low
// numbers; the switch matrix starts above them.
const (
	dedicatedBase = 0
	matrixBase    = 32
	matrixRows    = 8
)

// DecodeSwitchNumber maps a symbolic switch name to a hardware number.
//
// This is the fallback used when a name has no registry entry - some
// deployments address switches by raw hardware position instead of a
// configured name. Accepted forms:
//
//   - "17"    plain decimal hardware number (all machine types)
//   - "SD3"   dedicated switch 3 (matrix machine types)
//   - "S46"   matrix column 4, row 6 (matrix machine types)
//
// Matrix columns and rows are 1-based, eight rows per column.
func DecodeSwitchNumber(machineType, name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty name", ErrBadSwitchName)
	}

	// Plain numeric names decode on every platform.
	if n, err := strconv.Atoi(name); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative number %q", ErrBadSwitchName, name)
		}
		return n, nil
	}

	if !matrixMachine(machineType) {
		return 0, fmt.Errorf("%w: %q (machine type %q only accepts numeric names)",
			ErrBadSwitchName, name, machineType)
	}

	// Dedicated switches: "SD<n>"
	if rest, ok := strings.CutPrefix(name, "SD"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("%w: %q", ErrBadSwitchName, name)
		}
		return dedicatedBase + n - 1, nil
	}

	// Matrix switches: "S<col><row>", both single digits, 1-based.
	if rest, ok := strings.CutPrefix(name, "S"); ok && len(rest) == 2 {
		col := int(rest[0] - '0')
		row := int(rest[1] - '0')
		if col < 1 || col > 9 || row < 1 || row > matrixRows {
			return 0, fmt.Errorf("%w: %q", ErrBadSwitchName, name)
		}
		return matrixBase + (col-1)*matrixRows + (row - 1), nil
	}

	return 0, fmt.Errorf("%w: %q", ErrBadSwitchName, name)
}

// matrixMachine reports whether the machine type has a switch matrix.
func matrixMachine(machineType string) bool {
	switch machineType {
	case TypeWPC, TypeWhitestar, TypeSternSAM:
		return true
	default:
		return false
	}
}

package osc

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Message is a single OSC message: a slash-delimited address pattern plus
// a sequence of typed arguments. Only the argument types the control
// protocol uses are supported: float32 ('f'), int32 ('i'), string ('s').
type Message struct {
	Address string
	Args    []any
}

// NewMessage builds a message with the given address and arguments.
func NewMessage(address string, args ...any) Message {
	return Message{Address: address, Args: args}
}

// Float returns argument i as a float64. Both float32 and int32 arguments
// convert; anything else is a payload error.
func (m Message) Float(i int) (float64, error) {
	if i >= len(m.Args) {
		return 0, fmt.Errorf("%w: argument %d missing (have %d)", ErrMalformedPayload, i, len(m.Args))
	}
	switch v := m.Args[i].(type) {
	case float32:
		return float64(v), nil
	case int32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: argument %d is %T, want numeric", ErrMalformedPayload, i, v)
	}
}

// Split separates the address pattern into its category token and target
// token. The leading slash is required; the target may be empty.
func (m Message) Split() (category, target string, err error) {
	if !strings.HasPrefix(m.Address, "/") {
		return "", "", fmt.Errorf("%w: address %q missing leading slash", ErrMalformedPacket, m.Address)
	}
	trimmed := strings.TrimPrefix(m.Address, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: empty address", ErrMalformedPacket)
	}
	category, target, _ = strings.Cut(trimmed, "/")
	return category, target, nil
}

// Encode serialises the message to OSC wire format: padded address string,
// padded type-tag string, then big-endian argument data.
func Encode(m Message) ([]byte, error) {
	if !strings.HasPrefix(m.Address, "/") {
		return nil, fmt.Errorf("%w: address %q missing leading slash", ErrMalformedPacket, m.Address)
	}

	var tags strings.Builder
	tags.WriteByte(',')
	var data []byte
	for i, arg := range m.Args {
		switch v := arg.(type) {
		case float32:
			tags.WriteByte('f')
			data = binary.BigEndian.AppendUint32(data, math.Float32bits(v))
		case int32:
			tags.WriteByte('i')
			data = binary.BigEndian.AppendUint32(data, uint32(v))
		case string:
			tags.WriteByte('s')
			data = appendPaddedString(data, v)
		default:
			return nil, fmt.Errorf("%w: unsupported argument %d type %T", ErrMalformedPacket, i, arg)
		}
	}

	buf := appendPaddedString(nil, m.Address)
	buf = appendPaddedString(buf, tags.String())
	buf = append(buf, data...)
	return buf, nil
}

// Decode parses an OSC datagram. Messages without a type-tag string are
// accepted as argument-free (some clients omit it).
func Decode(buf []byte) (Message, error) {
	address, rest, err := readPaddedString(buf)
	if err != nil {
		return Message{}, fmt.Errorf("%w: address: %w", ErrMalformedPacket, err)
	}
	if !strings.HasPrefix(address, "/") {
		return Message{}, fmt.Errorf("%w: address %q missing leading slash", ErrMalformedPacket, address)
	}

	msg := Message{Address: address}
	if len(rest) == 0 {
		return msg, nil
	}

	tags, rest, err := readPaddedString(rest)
	if err != nil {
		return Message{}, fmt.Errorf("%w: type tags: %w", ErrMalformedPacket, err)
	}
	if !strings.HasPrefix(tags, ",") {
		return Message{}, fmt.Errorf("%w: type tags %q missing comma", ErrMalformedPacket, tags)
	}

	for _, tag := range tags[1:] {
		switch tag {
		case 'f':
			if len(rest) < 4 {
				return Message{}, fmt.Errorf("%w: truncated float argument", ErrMalformedPacket)
			}
			msg.Args = append(msg.Args, math.Float32frombits(binary.BigEndian.Uint32(rest)))
			rest = rest[4:]
		case 'i':
			if len(rest) < 4 {
				return Message{}, fmt.Errorf("%w: truncated int argument", ErrMalformedPacket)
			}
			msg.Args = append(msg.Args, int32(binary.BigEndian.Uint32(rest)))
			rest = rest[4:]
		case 's':
			var s string
			s, rest, err = readPaddedString(rest)
			if err != nil {
				return Message{}, fmt.Errorf("%w: string argument: %w", ErrMalformedPacket, err)
			}
			msg.Args = append(msg.Args, s)
		default:
			return Message{}, fmt.Errorf("%w: unsupported type tag %q", ErrMalformedPacket, tag)
		}
	}
	return msg, nil
}

// appendPaddedString appends a null-terminated string padded to a 4-byte
// boundary, per the OSC string encoding.
func appendPaddedString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	// At least one null terminator, then pad to a multiple of 4.
	for pad := 4 - len(s)%4; pad > 0; pad-- {
		buf = append(buf, 0)
	}
	return buf
}

// readPaddedString reads a null-terminated padded string and returns the
// remaining bytes.
func readPaddedString(buf []byte) (string, []byte, error) {
	end := -1
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return "", nil, fmt.Errorf("unterminated string")
	}

	consumed := end + 1
	if rem := consumed % 4; rem != 0 {
		consumed += 4 - rem
	}
	if consumed > len(buf) {
		consumed = len(buf)
	}
	return string(buf[:end]), buf[consumed:], nil
}

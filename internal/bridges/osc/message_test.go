package osc

import (
	"errors"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{name: "single float", msg: NewMessage("/sw/flipperL", float32(1.0))},
		{name: "no args", msg: NewMessage("/refresh")},
		{name: "int arg", msg: NewMessage("/coil/slingL", int32(1))},
		{name: "mixed args", msg: NewMessage("/lamp/bonus2x", float32(0.25), int32(7), "note")},
		{name: "address at pad boundary", msg: NewMessage("/led", float32(0.5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if len(buf)%4 != 0 {
				t.Errorf("encoded length %d not 4-byte aligned", len(buf))
			}

			got, err := Decode(buf)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Address != tt.msg.Address {
				t.Errorf("Address = %q, want %q", got.Address, tt.msg.Address)
			}
			if len(got.Args) != len(tt.msg.Args) {
				t.Fatalf("Args len = %d, want %d", len(got.Args), len(tt.msg.Args))
			}
			for i := range got.Args {
				if got.Args[i] != tt.msg.Args[i] {
					t.Errorf("Args[%d] = %v (%T), want %v (%T)",
						i, got.Args[i], got.Args[i], tt.msg.Args[i], tt.msg.Args[i])
				}
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{name: "empty", buf: nil},
		{name: "unterminated address", buf: []byte("/sw/flip")},
		{name: "no leading slash", buf: []byte("sw/x\x00\x00\x00\x00")},
		{name: "tags without comma", buf: []byte("/sw/x\x00\x00\x00f\x00\x00\x00")},
		{name: "truncated float", buf: []byte("/sw/x\x00\x00\x00,f\x00\x00\x00\x01")},
		{name: "unsupported tag", buf: []byte("/sw/x\x00\x00\x00,b\x00\x00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.buf); !errors.Is(err, ErrMalformedPacket) {
				t.Errorf("Decode() error = %v, want ErrMalformedPacket", err)
			}
		})
	}
}

// Clients that omit the type-tag string still parse, with no arguments.
func TestDecode_NoTypeTags(t *testing.T) {
	msg, err := Decode([]byte("/refresh\x00\x00\x00\x00"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Address != "/refresh" || len(msg.Args) != 0 {
		t.Errorf("got %+v, want bare /refresh", msg)
	}
}

func TestMessage_Float(t *testing.T) {
	msg := NewMessage("/lamp/x", float32(0.5), int32(3), "str")

	if v, err := msg.Float(0); err != nil || v != 0.5 {
		t.Errorf("Float(0) = (%v, %v), want (0.5, nil)", v, err)
	}
	if v, err := msg.Float(1); err != nil || v != 3 {
		t.Errorf("Float(1) = (%v, %v), want (3, nil)", v, err)
	}
	if _, err := msg.Float(2); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Float(2) error = %v, want ErrMalformedPayload", err)
	}
	if _, err := msg.Float(3); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Float(3) error = %v, want ErrMalformedPayload", err)
	}
}

func TestMessage_Split(t *testing.T) {
	tests := []struct {
		address      string
		wantCategory string
		wantTarget   string
		wantErr      bool
	}{
		{address: "/sw/flipperL", wantCategory: "sw", wantTarget: "flipperL"},
		{address: "/refresh", wantCategory: "refresh", wantTarget: ""},
		{address: "/led/+8-60", wantCategory: "led", wantTarget: "+8-60"},
		{address: "no-slash", wantErr: true},
		{address: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			category, target, err := Message{Address: tt.address}.Split()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Split() = (%q, %q), want error", category, target)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if category != tt.wantCategory || target != tt.wantTarget {
				t.Errorf("Split() = (%q, %q), want (%q, %q)",
					category, target, tt.wantCategory, tt.wantTarget)
			}
		})
	}
}

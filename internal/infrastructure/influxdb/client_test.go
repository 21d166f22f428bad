package influxdb

import (
	"errors"
	"testing"

	"github.com/pinforge/oscbridge/internal/infrastructure/config"
	"github.com/pinforge/oscbridge/internal/machine"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestRecord_Disconnected(t *testing.T) {
	c := &Client{}

	// A disconnected recorder must be a silent no-op, not a panic:
	// it sits on the hot receive path.
	c.Record(machine.SwitchEvent{Type: machine.SwitchClosedDebounced, Number: 3})
	c.WriteBridgeStats(map[string]interface{}{"messages_rx": 1})
	c.Flush()
}

func TestClose_NilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

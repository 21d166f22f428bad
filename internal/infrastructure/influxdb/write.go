package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/pinforge/oscbridge/internal/machine"
)

// Ensure Client satisfies the event queue's recorder contract.
var _ machine.Recorder = (*Client)(nil)

// Record writes a debounced switch event as a time-series point. This is
// the machine event queue's recorder hook; the write is non-blocking.
func (c *Client) Record(ev machine.SwitchEvent) {
	if !c.IsConnected() {
		return
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	closed := 0
	if ev.Type == machine.SwitchClosedDebounced {
		closed = 1
	}

	point := write.NewPoint(
		"switch_events",
		map[string]string{
			"event_type": ev.Type.String(),
		},
		map[string]interface{}{
			"switch_number": ev.Number,
			"closed":        closed,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStats writes a snapshot of bridge counters.
//
// Called periodically from the host loop so message rates and drop
// counts are graphable alongside switch activity.
func (c *Client) WriteBridgeStats(fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_stats",
		map[string]string{},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

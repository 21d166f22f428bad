package machine

import (
	"testing"
	"time"
)

type captureRecorder struct {
	events []SwitchEvent
}

func (r *captureRecorder) Record(ev SwitchEvent) {
	r.events = append(r.events, ev)
}

func TestEventQueue_AppendDrain(t *testing.T) {
	q := NewEventQueue()

	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("Drain() on empty queue = %d events, want 0", len(got))
	}

	now := time.Now()
	q.Append(SwitchEvent{Type: SwitchClosedDebounced, Number: 3, At: now})
	q.Append(SwitchEvent{Type: SwitchOpenDebounced, Number: 3, At: now})

	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}

	events := q.Drain()
	if len(events) != 2 {
		t.Fatalf("Drain() = %d events, want 2", len(events))
	}
	if events[0].Type != SwitchClosedDebounced || events[1].Type != SwitchOpenDebounced {
		t.Errorf("events out of arrival order: %+v", events)
	}

	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestEventQueue_Recorders(t *testing.T) {
	q := NewEventQueue()
	rec := &captureRecorder{}
	q.AddRecorder(rec)

	q.Append(SwitchEvent{Type: SwitchClosedDebounced, Number: 7})

	if len(rec.events) != 1 {
		t.Fatalf("recorder saw %d events, want 1", len(rec.events))
	}
	if rec.events[0].Number != 7 {
		t.Errorf("recorded number = %d, want 7", rec.events[0].Number)
	}

	// Draining must not re-notify recorders.
	q.Drain()
	if len(rec.events) != 1 {
		t.Errorf("recorder saw %d events after drain, want 1", len(rec.events))
	}
}

func TestEventTypeString(t *testing.T) {
	if SwitchClosedDebounced.String() != "switch_closed" {
		t.Errorf("String() = %q", SwitchClosedDebounced.String())
	}
	if SwitchOpenDebounced.String() != "switch_open" {
		t.Errorf("String() = %q", SwitchOpenDebounced.String())
	}
	if EventType(99).String() != "unknown" {
		t.Errorf("String() = %q", EventType(99).String())
	}
}

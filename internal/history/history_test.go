package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pinforge/oscbridge/internal/infrastructure/config"
	"github.com/pinforge/oscbridge/internal/infrastructure/database"
	"github.com/pinforge/oscbridge/internal/machine"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := New(db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := testStore(t)

	now := time.Now()
	store.Record(machine.SwitchEvent{Type: machine.SwitchClosedDebounced, Number: 17, At: now})
	store.Record(machine.SwitchEvent{Type: machine.SwitchOpenDebounced, Number: 17, At: now.Add(time.Millisecond)})

	// Close flushes the async writer before we query.
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events, err := store.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ListRecent() = %d events, want 2", len(events))
	}

	// Most recent first.
	if events[0].Type != "switch_open" || events[1].Type != "switch_closed" {
		t.Errorf("order = [%s, %s], want [switch_open, switch_closed]",
			events[0].Type, events[1].Type)
	}
	if events[0].Number != 17 {
		t.Errorf("Number = %d, want 17", events[0].Number)
	}
}

func TestStore_CountSince(t *testing.T) {
	store := testStore(t)

	base := time.Now()
	store.Record(machine.SwitchEvent{Type: machine.SwitchClosedDebounced, Number: 1, At: base.Add(-time.Hour)})
	store.Record(machine.SwitchEvent{Type: machine.SwitchClosedDebounced, Number: 2, At: base})

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	count, err := store.CountSince(context.Background(), base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountSince() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountSince() = %d, want 1", count)
	}
}

func TestStore_RecordAfterClose(t *testing.T) {
	store := testStore(t)

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Must not panic or block.
	store.Record(machine.SwitchEvent{Type: machine.SwitchClosedDebounced, Number: 1, At: time.Now()})

	events, err := store.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("post-close record persisted %d events, want 0", len(events))
	}
}

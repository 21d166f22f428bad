package history

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pinforge/oscbridge/internal/infrastructure/database"
	"github.com/pinforge/oscbridge/internal/machine"
)

// Store tunables.
const (
	// writeQueueSize bounds the async write queue. Events beyond this
	// are dropped rather than stalling the receive path.
	writeQueueSize = 256

	// insertTimeout bounds a single insert.
	insertTimeout = 2 * time.Second
)

// schema is the event log table. The store owns its schema; the shared
// database package only provides the connection.
const schema = `
CREATE TABLE IF NOT EXISTS switch_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	switch_number INTEGER NOT NULL,
	occurred_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_switch_events_occurred_at
	ON switch_events(occurred_at);
`

// Logger interface for optional logging.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Event is one persisted switch transition.
type Event struct {
	ID         int64
	Type       string
	Number     int
	OccurredAt time.Time
}

// Store persists debounced switch events to SQLite.
//
// It implements the machine event queue's Recorder interface. Record is
// called on the network receive path, so writes are queued and flushed
// by a single background writer; a full queue drops the event and counts
// it instead of blocking.
type Store struct {
	db *database.DB

	queue chan machine.SwitchEvent
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	dropped atomic.Uint64
}

// Ensure Store satisfies the event queue's recorder contract.
var _ machine.Recorder = (*Store)(nil)

// New creates the schema if needed and starts the background writer.
func New(db *database.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating event history schema: %w", err)
	}

	s := &Store{
		db:    db,
		queue: make(chan machine.SwitchEvent, writeQueueSize),
		done:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

// Record queues an event for persistence. Never blocks; a full queue
// drops the event.
func (s *Store) Record(ev machine.SwitchEvent) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
		s.logWarn("event history queue full, dropping event",
			"switch_number", ev.Number, "event_type", ev.Type.String())
	}
}

// writeLoop flushes queued events to the database.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			// Flush whatever is already queued before exiting.
			for {
				select {
				case ev := <-s.queue:
					s.insert(ev)
				default:
					return
				}
			}
		case ev := <-s.queue:
			s.insert(ev)
		}
	}
}

// insert writes a single event row.
func (s *Store) insert(ev machine.SwitchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO switch_events (event_type, switch_number, occurred_at) VALUES (?, ?, ?)`,
		ev.Type.String(), ev.Number, at.UTC())
	if err != nil {
		s.logError("event history insert failed", err)
	}
}

// ListRecent returns the newest events, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_type, switch_number, occurred_at
		 FROM switch_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying event history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Number, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading event rows: %w", err)
	}
	return events, nil
}

// CountSince returns the number of events recorded at or after t.
func (s *Store) CountSince(ctx context.Context, t time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM switch_events WHERE occurred_at >= ?`, t.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting event history: %w", err)
	}
	return count, nil
}

// Dropped returns the number of events dropped due to a full queue.
func (s *Store) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops the writer after flushing queued events. The database
// connection itself is owned by the caller.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// logWarn logs a warning message if logger is set.
func (s *Store) logWarn(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (s *Store) logError(msg string, err error) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

package machine

import "sync"

// Recorder receives a copy of every debounced event appended to the queue.
// Implementations must not block for long; they run on the appender's
// goroutine (typically the network receive path).
type Recorder interface {
	Record(ev SwitchEvent)
}

// EventQueue is the host-facing debounced event queue. The dispatcher
// appends events as control messages arrive; the host loop drains them
// once per tick and applies them to switch state.
//
// All methods are safe for concurrent use.
type EventQueue struct {
	mu     sync.Mutex
	events []SwitchEvent

	recMu     sync.RWMutex
	recorders []Recorder
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// AddRecorder registers a recorder that observes every appended event.
// Recorders should be registered during startup, before traffic flows.
func (q *EventQueue) AddRecorder(r Recorder) {
	q.recMu.Lock()
	q.recorders = append(q.recorders, r)
	q.recMu.Unlock()
}

// Append adds an event to the queue and notifies recorders.
func (q *EventQueue) Append(ev SwitchEvent) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()

	q.recMu.RLock()
	recorders := q.recorders
	q.recMu.RUnlock()

	for _, r := range recorders {
		r.Record(ev)
	}
}

// Drain removes and returns all pending events in arrival order.
func (q *EventQueue) Drain() []SwitchEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

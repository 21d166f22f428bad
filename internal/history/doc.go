// Package history persists debounced switch events to SQLite.
//
// The store hangs off the machine event queue as a recorder: every
// appended event is queued and written by a background goroutine, so the
// network receive path never waits on disk. History is append-only and
// queryable for recent activity.
package history

// Package logging provides structured logging built on log/slog.
//
// All components receive a logger (or a nil-safe Logger interface) rather
// than writing to a package-level default, so tests can run silently and
// the output format stays consistent across the process.
package logging

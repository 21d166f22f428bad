// Package database provides the SQLite connection for the bridge's
// event history. It handles the file lifecycle, WAL and busy-timeout
// pragmas, and health checks; table schemas belong to the packages that
// own the data.
package database

// Package influxdb provides the bridge's optional time-series metrics.
//
// When enabled, debounced switch events and periodic bridge counter
// snapshots are written to an InfluxDB v2 bucket via the non-blocking
// batched write API. The client doubles as a machine event recorder, so
// wiring it up is a single AddRecorder call.
package influxdb

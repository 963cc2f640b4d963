package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
var (
	// ErrDisabled is returned when connecting with influxdb.enabled false.
	ErrDisabled = errors.New("influxdb is disabled in configuration")

	// ErrConnectionFailed is returned when the initial connection fails.
	ErrConnectionFailed = errors.New("influxdb connection failed")

	// ErrNotConnected is returned when an operation requires an active connection.
	ErrNotConnected = errors.New("influxdb client not connected")
)

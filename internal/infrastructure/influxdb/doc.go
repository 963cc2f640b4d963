// Package influxdb provides the optional time-series mirror for
// Greenhouse Core.
//
// SQLite remains the source of truth; when InfluxDB is enabled, every
// logged sensor measurement and device state transition is also written
// as a point for dashboarding and retention-managed history. Writes are
// batched and asynchronous, so a slow or absent InfluxDB never delays
// the automation cycle.
package influxdb

// Package sensor provides the sensor abstraction for Greenhouse Core.
//
// A sensor is described by a Descriptor (persisted in SQLite) and
// instantiated through New, which returns either a simulated sensor
// generating plausible values for its kind, or a hardware-backed sensor.
//
// # Readings
//
// Read produces a Reading, which is either a scalar or a bundle of named
// measurements. Combined temperature/humidity probes return a bundle
// ("temp" and "humid") because one physical transaction yields both
// values; a shared ProbeCache deduplicates hardware access across
// sensors on the same pin and across repeated reads within a TTL.
//
// # Failure model
//
// Construction errors (unsupported hardware kind, missing pin) are
// configuration faults and fail fast. Read errors are transient: they
// are wrapped in *ReadError and the sensor stays usable on later ticks.
package sensor

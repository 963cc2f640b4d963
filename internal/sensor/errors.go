package sensor

import (
	"errors"
	"fmt"
)

// Sentinel errors for sensor operations.
var (
	// ErrSensorNotFound is returned when a sensor descriptor does not exist.
	ErrSensorNotFound = errors.New("sensor not found")

	// ErrSensorExists is returned when creating a sensor whose name or ID
	// is already taken.
	ErrSensorExists = errors.New("sensor already exists")

	// ErrUnsupportedKind is returned at construction when no driver exists
	// for a hardware sensor of the requested kind. This is a configuration
	// fault, not a transient read failure.
	ErrUnsupportedKind = errors.New("no hardware driver for sensor kind")

	// ErrMissingPin is returned at construction when a hardware probe
	// sensor has no "pin" entry in its config.
	ErrMissingPin = errors.New("hardware sensor config missing pin")

	// ErrProbeRead is returned when the physical probe fails to produce a
	// valid sample after all retries.
	ErrProbeRead = errors.New("probe read failed")
)

// ReadError wraps a transient read failure with the sensor's name so the
// automation cycle can log and isolate it without losing attribution.
type ReadError struct {
	Sensor string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading sensor %q: %v", e.Sensor, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

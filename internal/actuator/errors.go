package actuator

import "errors"

// Sentinel errors for actuator operations.
var (
	// ErrInvalidPin is returned when constructing an actuator on a pin
	// that cannot address real hardware.
	ErrInvalidPin = errors.New("invalid GPIO pin")

	// ErrReleased is returned when driving an actuator whose pin has
	// already been released.
	ErrReleased = errors.New("actuator released")
)

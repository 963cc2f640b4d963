package device

import "errors"

// Sentinel errors for device operations.
var (
	// ErrDeviceNotFound is returned when a device does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceExists is returned when creating a device whose name or ID
	// is already taken.
	ErrDeviceExists = errors.New("device already exists")

	// ErrNotManual is returned when a manual control command targets a
	// device that is under automation.
	ErrNotManual = errors.New("device is not in manual mode")
)

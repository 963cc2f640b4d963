// Package device holds the persistent model for controllable greenhouse
// devices.
//
// A Device binds a GPIO pin to a control strategy: time-based scheduling
// (on at a wall-clock time for a duration) or sensor-based hysteresis
// control, optionally embedded directly on the device row. The mode
// field arbitrates between automation (auto) and operator control
// (manual); the automation cycle never touches a manual device.
//
// CurrentStatus is the persisted actuation state and survives restarts;
// it seeds the hysteresis controllers so a restart does not re-fire
// actuations.
package device

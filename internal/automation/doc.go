// Package automation runs the greenhouse control loop.
//
// The Cycle performs one pass: read every configured sensor exactly once
// into a tick-scoped map, log and publish the measurements, apply
// time-based scheduling to auto-mode devices, then apply sensor-based
// hysteresis control from explicit rules and embedded device bindings.
// Persisted device status is the only state carried between ticks.
//
// The Scheduler runs the cycle on a fixed interval with no overlapping
// ticks and releases all actuators on shutdown.
//
// Failure philosophy: a tick never aborts. Broken sensors are isolated
// (and suppressed until reconfigured if they cannot even be
// constructed), actuator write errors are logged while the decided state
// is still committed, and the next tick converges hardware with intent.
package automation

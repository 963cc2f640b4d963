// Package actuator drives relay-backed greenhouse devices over GPIO.
//
// An Actuator wraps one pin with idempotent TurnOn/TurnOff/Release
// operations. The pin-level access sits behind the Driver interface with
// two implementations: a sysfs GPIO driver for real hardware and a
// log-only simulated driver for development.
//
// The Pool caches one claimed Actuator per pin for the lifetime of the
// process and releases them all on shutdown, leaving every device off.
//
// Hardware write failures are returned to the caller for logging but are
// never fatal; the automation cycle re-asserts the desired state on the
// next tick.
package actuator

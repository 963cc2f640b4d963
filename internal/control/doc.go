// Package control implements on/off hysteresis control for greenhouse
// devices.
//
// A Controller binds a threshold, a dead band, and a control logic
// ("below" for heaters and humidifiers, "above" for fans) to a switchable
// actuator. Evaluate applies one sensor reading and commands the actuator
// only when the value crosses a trip point strictly outside the dead
// band, so a value hovering near the threshold cannot chatter the relay.
//
// Controllers are rebuilt each automation tick from persisted device and
// rule state; the active flag is seeded from the device's stored status.
package control

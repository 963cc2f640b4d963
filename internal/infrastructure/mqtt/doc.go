// Package mqtt provides the optional MQTT state bus for Greenhouse Core.
//
// When enabled, the core publishes every logged sensor measurement and
// every device state transition as retained messages, and subscribes to
// manual override commands:
//
//	greenhouse/sensor/{name}/reading   measurements (retained)
//	greenhouse/device/{name}/state     actuation state (retained)
//	greenhouse/device/{name}/set       manual override commands (inbound)
//	greenhouse/system/status           online/offline with LWT
//
// The connection auto-reconnects with exponential backoff and restores
// subscriptions. Publishing is fire-and-forget from the automation
// cycle's point of view; the broker being down never affects control.
package mqtt

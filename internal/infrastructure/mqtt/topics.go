package mqtt

import "fmt"

// TopicPrefix is the base for all Greenhouse Core topics.
//
// Scheme:
//
//	greenhouse/sensor/{name}/reading   logged measurements (retained)
//	greenhouse/device/{name}/state     actuation state (retained)
//	greenhouse/device/{name}/set       manual override commands (inbound)
//	greenhouse/system/status           online/offline status with LWT
const TopicPrefix = "greenhouse"

// Topics provides builders for Greenhouse Core MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// SensorReading returns the topic for a sensor's logged measurements.
//
// Example: greenhouse/sensor/probe1_temp/reading
func (Topics) SensorReading(name string) string {
	return fmt.Sprintf("%s/sensor/%s/reading", TopicPrefix, name)
}

// DeviceState returns the topic for a device's actuation state.
//
// Example: greenhouse/device/heat_lamp/state
func (Topics) DeviceState(name string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefix, name)
}

// DeviceCommand returns the topic for manual override commands to a device.
//
// Example: greenhouse/device/heat_lamp/set
func (Topics) DeviceCommand(name string) string {
	return fmt.Sprintf("%s/device/%s/set", TopicPrefix, name)
}

// AllDeviceCommands returns a pattern matching all device command topics.
//
// Pattern: greenhouse/device/+/set
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/device/+/set", TopicPrefix)
}

// SystemStatus returns the system status topic.
//
// Example: greenhouse/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefix+"/system")
}

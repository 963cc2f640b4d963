package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// PublishReading mirrors one logged sensor measurement into the
// sensor_readings measurement. Non-blocking; points are batched.
//
// This satisfies the automation cycle's publisher interface, so the
// client plugs straight into the control loop when enabled.
//
// Parameters:
//   - name: Log name of the measurement (e.g. "probe1_temp")
//   - value: Measured value
//   - at: When the reading was taken
func (c *Client) PublishReading(name string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{"sensor": name},
		map[string]interface{}{"value": value},
		at,
	)
	c.writeAPI.WritePoint(point)
}

// PublishDeviceState mirrors a device actuation transition into the
// device_state measurement. Non-blocking.
//
// Parameters:
//   - name: Device name
//   - on: New actuation state
func (c *Client) PublishDeviceState(name string, on bool) {
	if !c.IsConnected() {
		return
	}

	state := 0
	if on {
		state = 1
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{"device": name},
		map[string]interface{}{"on": state},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and
// fields. Use for measurements that don't fit the helpers.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

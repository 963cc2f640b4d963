package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxPayloadSize caps MQTT message payloads (1MB, typical broker limit).
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// readingMessage is the wire format for sensor reading publishes.
type readingMessage struct {
	Sensor     string    `json:"sensor"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// stateMessage is the wire format for device state publishes.
type stateMessage struct {
	Device    string    `json:"device"`
	On        bool      `json:"on"`
	Timestamp time.Time `json:"timestamp"`
}

// StatePublisher adapts the Client to the automation cycle's publisher
// interface. Publishes are fire-and-forget: delivery failures are logged
// and never propagate into the control loop.
type StatePublisher struct {
	client *Client
	logger Logger
}

// NewStatePublisher creates a publisher over an established client.
func NewStatePublisher(client *Client, logger Logger) *StatePublisher {
	return &StatePublisher{client: client, logger: logger}
}

// PublishReading publishes one logged measurement, retained so late
// subscribers see the most recent value.
func (p *StatePublisher) PublishReading(name string, value float64, at time.Time) {
	payload, err := json.Marshal(readingMessage{Sensor: name, Value: value, RecordedAt: at})
	if err != nil {
		p.logger.Error("marshalling reading message", "sensor", name, "error", err)
		return
	}
	topic := Topics{}.SensorReading(name)
	if err := p.client.Publish(topic, payload, byte(p.client.cfg.QoS), true); err != nil {
		p.logger.Warn("publishing reading failed", "sensor", name, "error", err)
	}
}

// PublishDeviceState publishes a device's actuation state, retained.
func (p *StatePublisher) PublishDeviceState(name string, on bool) {
	payload, err := json.Marshal(stateMessage{Device: name, On: on, Timestamp: time.Now().UTC()})
	if err != nil {
		p.logger.Error("marshalling state message", "device", name, "error", err)
		return
	}
	topic := Topics{}.DeviceState(name)
	if err := p.client.Publish(topic, payload, byte(p.client.cfg.QoS), true); err != nil {
		p.logger.Warn("publishing device state failed", "device", name, "error", err)
	}
}

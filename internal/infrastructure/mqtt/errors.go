package mqtt

import "errors"

// Sentinel errors for MQTT operations.
var (
	// ErrConnectionFailed is returned when the initial broker connection fails.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected is returned when an operation requires an active connection.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrPublishFailed is returned when a publish operation fails or times out.
	ErrPublishFailed = errors.New("mqtt publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails or times out.
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")

	// ErrInvalidTopic is returned for empty or malformed topics.
	ErrInvalidTopic = errors.New("invalid mqtt topic")

	// ErrInvalidQoS is returned for QoS levels outside 0-2.
	ErrInvalidQoS = errors.New("invalid mqtt qos level")
)

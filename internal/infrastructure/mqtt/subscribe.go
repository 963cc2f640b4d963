package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// commandMessage is the wire format for device command payloads.
type commandMessage struct {
	On bool `json:"on"`
}

// CommandHandler receives manual override commands for a device by name.
type CommandHandler func(device string, on bool) error

// SubscribeDeviceCommands subscribes to greenhouse/device/+/set and
// routes each command to the handler. The device name is extracted from
// the topic; the payload is {"on": true|false}.
//
// Commands target manual-mode devices; the handler decides whether the
// device accepts operator control.
func (c *Client) SubscribeDeviceCommands(handler CommandHandler) error {
	topic := Topics{}.AllDeviceCommands()
	return c.Subscribe(topic, func(topic string, payload []byte) error {
		name, err := deviceFromCommandTopic(topic)
		if err != nil {
			return err
		}

		var cmd commandMessage
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("parsing command for %q: %w", name, err)
		}

		return handler(name, cmd.On)
	})
}

// deviceFromCommandTopic extracts the device name from a command topic.
// Expected shape: greenhouse/device/<name>/set
func deviceFromCommandTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "device" || parts[3] != "set" {
		return "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	if parts[2] == "" {
		return "", fmt.Errorf("%w: empty device name in %s", ErrInvalidTopic, topic)
	}
	return parts[2], nil
}

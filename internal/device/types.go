package device

import (
	"fmt"
	"time"

	"github.com/mossburn/greenhouse-core/internal/control"
)

// ControlMode selects how the automation cycle drives a device.
type ControlMode string

const (
	// ControlModeTime schedules the device by time of day and duration.
	ControlModeTime ControlMode = "time"

	// ControlModeSensor drives the device from a sensor reading through
	// hysteresis control.
	ControlModeSensor ControlMode = "sensor"
)

// Mode selects whether automation runs at all for a device.
type Mode string

const (
	// ModeAuto hands the device to the automation cycle.
	ModeAuto Mode = "auto"

	// ModeManual reserves the device for operator control via the API;
	// the automation cycle skips it entirely.
	ModeManual Mode = "manual"
)

// Device is a controllable greenhouse device (light, heat lamp, water
// valve, fan) backed by one GPIO pin.
//
// Time-controlled devices use AutoTime/AutoDurationMinutes/AutoEnabled.
// Sensor-controlled devices may embed a hysteresis binding directly
// (SensorName, Threshold, ControlLogic, Hysteresis); an explicit rule
// for the same sensor/device pair takes precedence over the embedded
// binding.
type Device struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Kind          string      `json:"kind"`
	ControlMode   ControlMode `json:"control_mode"`
	Mode          Mode        `json:"mode"`
	CurrentStatus bool        `json:"current_status"`

	// Time-based control
	AutoTime            string     `json:"auto_time,omitempty"` // "HH:MM"
	AutoDurationMinutes int        `json:"auto_duration_min"`
	AutoEnabled         bool       `json:"auto_enabled"`
	LastAutoOn          *time.Time `json:"last_auto_on,omitempty"`

	// Hardware binding
	GPIOPin  int  `json:"gpio_pin"`
	Simulate bool `json:"simulate"`

	// Embedded sensor-based control binding
	SensorName   *string        `json:"sensor_name,omitempty"`
	Threshold    *float64       `json:"threshold,omitempty"`
	ControlLogic *control.Logic `json:"control_logic,omitempty"`
	Hysteresis   float64        `json:"hysteresis"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the device for configuration errors.
func (d *Device) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("device name is required")
	}
	if d.GPIOPin <= 0 {
		return fmt.Errorf("device %q: gpio_pin must be positive", d.Name)
	}

	switch d.ControlMode {
	case ControlModeTime:
		if d.AutoEnabled {
			if _, err := ParseAutoTime(d.AutoTime); err != nil {
				return fmt.Errorf("device %q: %w", d.Name, err)
			}
			if d.AutoDurationMinutes <= 0 {
				return fmt.Errorf("device %q: auto_duration_min must be positive when auto_enabled", d.Name)
			}
		}
	case ControlModeSensor:
		if d.SensorName != nil {
			if d.Threshold == nil {
				return fmt.Errorf("device %q: threshold required with sensor_name", d.Name)
			}
			if d.ControlLogic == nil || !control.ValidLogic(*d.ControlLogic) {
				return fmt.Errorf("device %q: control_logic must be below or above", d.Name)
			}
			if d.Hysteresis < 0 {
				return fmt.Errorf("device %q: hysteresis must not be negative", d.Name)
			}
		}
	default:
		return fmt.Errorf("device %q: control_mode must be time or sensor", d.Name)
	}

	switch d.Mode {
	case ModeAuto, ModeManual:
	default:
		return fmt.Errorf("device %q: mode must be auto or manual", d.Name)
	}

	return nil
}

// ParseAutoTime parses an "HH:MM" schedule time into hour and minute.
func ParseAutoTime(s string) (hm [2]int, err error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return hm, fmt.Errorf("auto_time %q: expected HH:MM", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return hm, fmt.Errorf("auto_time %q: out of range", s)
	}
	return [2]int{hour, minute}, nil
}

package control

import (
	"fmt"

	"github.com/mossburn/greenhouse-core/internal/sensor"
)

// Logic selects which side of the threshold demands actuation.
type Logic string

const (
	// LogicBelow turns the actuator on when the value drops below the
	// threshold (heating, humidifying, irrigation).
	LogicBelow Logic = "below"

	// LogicAbove turns the actuator on when the value rises above the
	// threshold (ventilation, cooling).
	LogicAbove Logic = "above"
)

// ValidLogic reports whether l is a recognised control logic.
func ValidLogic(l Logic) bool {
	return l == LogicBelow || l == LogicAbove
}

// Decision is the outcome of one controller evaluation.
type Decision string

const (
	// DecisionNone means the value sits inside the hysteresis band or the
	// actuator is already in the demanded state.
	DecisionNone Decision = "none"

	// DecisionTurnOn means the controller commanded the actuator on.
	DecisionTurnOn Decision = "turn_on"

	// DecisionTurnOff means the controller commanded the actuator off.
	DecisionTurnOff Decision = "turn_off"
)

// Switch is the actuator surface the controller drives.
type Switch interface {
	TurnOn() error
	TurnOff() error
}

// Controller implements on/off hysteresis control for one
// sensor/actuator binding.
//
// With "below" logic the actuator turns on only when the value falls
// strictly below threshold-hysteresis and off only when it rises
// strictly above threshold+hysteresis; "above" logic mirrors this. The
// dead band between the two trip points prevents relay chatter when the
// value hovers near the threshold. All comparisons are strict: a value
// exactly on a trip point never actuates.
//
// The controller is stateful. Active tracks the last commanded state and
// must be seeded from the device's persisted status so restarts do not
// re-fire actuations.
//
// Not safe for concurrent use; each cycle tick builds or owns its
// controllers.
type Controller struct {
	sw          Switch
	threshold   float64
	hysteresis  float64
	logic       Logic
	measurement string
	active      bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithMeasurement selects the named measurement from bundle readings
// (e.g. "temp" or "humid" from a combined probe). Scalar readings ignore
// the key.
func WithMeasurement(key string) Option {
	return func(c *Controller) { c.measurement = key }
}

// WithActive seeds the controller's notion of the actuator's current
// state, normally from the device's persisted status.
func WithActive(active bool) Option {
	return func(c *Controller) { c.active = active }
}

// New creates a hysteresis controller.
//
// Parameters:
//   - sw: Actuator to drive
//   - threshold: Setpoint in the sensor's units
//   - hysteresis: Half-width of the dead band (negative values are clamped to 0)
//   - logic: LogicBelow or LogicAbove
//   - opts: Optional measurement key and seed state
func New(sw Switch, threshold, hysteresis float64, logic Logic, opts ...Option) *Controller {
	if hysteresis < 0 {
		hysteresis = 0
	}
	c := &Controller{
		sw:         sw,
		threshold:  threshold,
		hysteresis: hysteresis,
		logic:      logic,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Active reports the controller's current notion of the actuator state.
func (c *Controller) Active() bool {
	return c.active
}

// Evaluate applies one reading to the controller.
//
// Invalid inputs (unknown logic, missing measurement key in a bundle)
// return DecisionNone with an error and leave state untouched. When a
// trip point fires, the internal active state is updated even if the
// actuator call fails; the persisted state then reflects intent and the
// next tick's re-assertion converges the hardware.
//
// Parameters:
//   - reading: Sensor reading for this tick
//
// Returns:
//   - Decision: What the controller commanded, if anything
//   - error: Validation failure or actuator error (decision still stands)
func (c *Controller) Evaluate(reading sensor.Reading) (Decision, error) {
	if !ValidLogic(c.logic) {
		return DecisionNone, fmt.Errorf("unknown control logic %q", c.logic)
	}

	value, ok := reading.Measurement(c.measurement)
	if !ok {
		return DecisionNone, fmt.Errorf("reading has no measurement %q", c.measurement)
	}

	low := c.threshold - c.hysteresis
	high := c.threshold + c.hysteresis

	var wantOn, trip bool
	switch c.logic {
	case LogicBelow:
		if !c.active && value < low {
			wantOn, trip = true, true
		} else if c.active && value > high {
			wantOn, trip = false, true
		}
	case LogicAbove:
		if !c.active && value > high {
			wantOn, trip = true, true
		} else if c.active && value < low {
			wantOn, trip = false, true
		}
	}

	if !trip {
		return DecisionNone, nil
	}

	c.active = wantOn
	if wantOn {
		if err := c.sw.TurnOn(); err != nil {
			return DecisionTurnOn, fmt.Errorf("turning actuator on: %w", err)
		}
		return DecisionTurnOn, nil
	}
	if err := c.sw.TurnOff(); err != nil {
		return DecisionTurnOff, fmt.Errorf("turning actuator off: %w", err)
	}
	return DecisionTurnOff, nil
}

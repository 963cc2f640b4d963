package automation

import "errors"

// Sentinel errors for automation operations.
var (
	// ErrRuleNotFound is returned when a rule does not exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleExists is returned when creating a rule for a
	// sensor/actuator pair that already has one.
	ErrRuleExists = errors.New("rule already exists for sensor/actuator pair")
)

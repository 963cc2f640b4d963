package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/mossburn/greenhouse-core/internal/actuator"
	"github.com/mossburn/greenhouse-core/internal/device"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
)

// DeviceDirectory resolves devices for manual overrides.
type DeviceDirectory interface {
	GetByName(ctx context.Context, name string) (*device.Device, error)
	GetByID(ctx context.Context, id string) (*device.Device, error)
	SetStatus(ctx context.Context, id string, on bool, lastAutoOn *time.Time) error
}

// Commander applies manual override commands to devices. The REST API
// and the MQTT command subscription both funnel through here, so the
// manual-mode guard and state publishing behave identically regardless
// of where the command came from.
type Commander struct {
	devices    DeviceDirectory
	pool       *actuator.Pool
	publishers []Publisher
	logger     *logging.Logger
}

// NewCommander creates a Commander.
func NewCommander(devices DeviceDirectory, pool *actuator.Pool, publishers []Publisher, logger *logging.Logger) *Commander {
	return &Commander{
		devices:    devices,
		pool:       pool,
		publishers: publishers,
		logger:     logger.With("component", "override"),
	}
}

// Override switches a device on or off outside the automation cycle.
//
// Devices in auto mode reject overrides with device.ErrNotManual: the
// cycle owns them and would revert the change on its next tick. The
// persisted status is updated even if the pin write fails, matching the
// cycle's convergence behaviour.
func (c *Commander) Override(ctx context.Context, d *device.Device, on bool) error {
	if d.Mode != device.ModeManual {
		return fmt.Errorf("device %s: %w", d.Name, device.ErrNotManual)
	}

	act, err := c.pool.Get(d.Name, d.GPIOPin, d.Simulate)
	if err != nil {
		return fmt.Errorf("acquiring actuator for %s: %w", d.Name, err)
	}

	var actErr error
	if on {
		actErr = act.TurnOn()
	} else {
		actErr = act.TurnOff()
	}
	if actErr != nil {
		c.logger.Error("manual override pin write failed", "device", d.Name, "on", on, "error", actErr)
	}

	if err := c.devices.SetStatus(ctx, d.ID, on, nil); err != nil {
		return fmt.Errorf("persisting status for %s: %w", d.Name, err)
	}

	for _, p := range c.publishers {
		p.PublishDeviceState(d.Name, on)
	}

	c.logger.Info("manual override applied", "device", d.Name, "on", on)
	return actErr
}

// OverrideByName resolves a device by name and applies Override.
// Used by the MQTT command subscription, where commands address devices
// by topic name.
func (c *Commander) OverrideByName(ctx context.Context, name string, on bool) error {
	d, err := c.devices.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("resolving device %s: %w", name, err)
	}
	return c.Override(ctx, d, on)
}

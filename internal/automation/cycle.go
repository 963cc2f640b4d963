package automation

import (
	"context"
	"time"

	"github.com/mossburn/greenhouse-core/internal/actuator"
	"github.com/mossburn/greenhouse-core/internal/control"
	"github.com/mossburn/greenhouse-core/internal/device"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
	"github.com/mossburn/greenhouse-core/internal/readings"
	"github.com/mossburn/greenhouse-core/internal/sensor"
)

// SensorSource lists the configured sensor descriptors.
type SensorSource interface {
	List(ctx context.Context) ([]sensor.Descriptor, error)
}

// DeviceStore is the device access the cycle needs.
type DeviceStore interface {
	List(ctx context.Context) ([]device.Device, error)
	SetStatus(ctx context.Context, id string, on bool, lastAutoOn *time.Time) error
}

// RuleSource lists the explicit control rules.
type RuleSource interface {
	List(ctx context.Context) ([]Rule, error)
}

// ReadingSink receives logged measurements.
type ReadingSink interface {
	Append(ctx context.Context, entry *readings.LogEntry) error
}

// Publisher receives fire-and-forget notifications of readings and
// device state transitions. Implementations (MQTT, InfluxDB) handle
// their own delivery failures; the cycle never blocks on them.
type Publisher interface {
	PublishReading(name string, value float64, at time.Time)
	PublishDeviceState(name string, on bool)
}

// Cycle runs one automation pass over all sensors and devices.
//
// A tick is strictly sequential: sense everything once, apply time-based
// control, then apply sensor-based hysteresis control against the
// readings gathered in step one. Persisted device status is the only
// state that survives between ticks; controllers are rebuilt every tick
// and seeded from it.
//
// Nothing a tick encounters is allowed to escape: per-entity failures
// are logged and isolated, and Run never returns an error.
//
// Not safe for concurrent Run calls; the Scheduler serialises ticks.
type Cycle struct {
	sensors SensorSource
	devices DeviceStore
	rules   RuleSource
	log     ReadingSink
	pool    *actuator.Pool
	env     sensor.Environment
	logger  *logging.Logger

	publishers []Publisher

	// now and location are injectable for tests.
	now      func() time.Time
	location *time.Location

	// suppressed maps sensor name to the updated_at stamp of a descriptor
	// whose construction failed. The sensor stays skipped until its
	// descriptor changes, keeping a misconfigured entity from spamming
	// the log every tick.
	suppressed map[string]time.Time
}

// CycleConfig wires a Cycle.
type CycleConfig struct {
	Sensors    SensorSource
	Devices    DeviceStore
	Rules      RuleSource
	Readings   ReadingSink
	Pool       *actuator.Pool
	Env        sensor.Environment
	Logger     *logging.Logger
	Publishers []Publisher

	// Location is the wall-clock zone for time-based control.
	// Defaults to time.Local.
	Location *time.Location

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewCycle creates an automation cycle.
func NewCycle(cfg CycleConfig) *Cycle {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cycle{
		sensors:    cfg.Sensors,
		devices:    cfg.Devices,
		rules:      cfg.Rules,
		log:        cfg.Readings,
		pool:       cfg.Pool,
		env:        cfg.Env,
		logger:     cfg.Logger.With("component", "automation"),
		publishers: cfg.Publishers,
		now:        now,
		location:   loc,
		suppressed: make(map[string]time.Time),
	}
}

// Run executes one automation tick. Never returns an error; everything
// is logged and isolated so the scheduler keeps ticking.
func (c *Cycle) Run(ctx context.Context) {
	tickStart := c.now()

	tick := c.sense(ctx)
	devs := c.listDevices(ctx)

	for i := range devs {
		d := &devs[i]
		if d.Mode != device.ModeAuto || d.ControlMode != device.ControlModeTime {
			continue
		}
		c.applyTimeControl(ctx, d)
	}

	c.applySensorControl(ctx, devs, tick)

	c.logger.Debug("tick complete",
		"sensors", len(tick),
		"devices", len(devs),
		"elapsed", c.now().Sub(tickStart).String(),
	)
}

// sense reads every configured sensor exactly once and returns the
// readings keyed by sensor name. Each scalar measurement is appended to
// the log and published.
func (c *Cycle) sense(ctx context.Context) map[string]sensor.Reading {
	tick := make(map[string]sensor.Reading)

	descs, err := c.sensors.List(ctx)
	if err != nil {
		c.logger.Error("listing sensors failed", "error", err)
		return tick
	}

	for i := range descs {
		desc := &descs[i]

		if stamp, ok := c.suppressed[desc.Name]; ok {
			if desc.UpdatedAt.Equal(stamp) {
				continue
			}
			// Descriptor changed since the failure; give it another go.
			delete(c.suppressed, desc.Name)
		}

		s, err := sensor.New(desc, c.env)
		if err != nil {
			c.suppressed[desc.Name] = desc.UpdatedAt
			c.logger.Error("sensor construction failed, suppressing until reconfigured",
				"sensor", desc.Name, "error", err)
			continue
		}

		reading, err := s.Read(ctx)
		if err != nil {
			c.logger.Warn("sensor read failed", "sensor", desc.Name, "error", err)
			continue
		}

		tick[desc.Name] = reading
		c.logReading(ctx, desc.Name, reading)
	}

	return tick
}

// logReading appends a reading to the log and notifies publishers.
// Bundle readings are split into one row per measurement.
func (c *Cycle) logReading(ctx context.Context, name string, reading sensor.Reading) {
	at := c.now().UTC()

	record := func(logName string, value float64) {
		entry := &readings.LogEntry{Sensor: logName, Value: value, RecordedAt: at}
		if err := c.log.Append(ctx, entry); err != nil {
			c.logger.Error("appending reading failed", "sensor", logName, "error", err)
		}
		for _, p := range c.publishers {
			p.PublishReading(logName, value, at)
		}
	}

	if reading.IsBundle() {
		if v, ok := reading.Measurement(sensor.MeasurementTemp); ok {
			record(name+"_temp", v)
		}
		if v, ok := reading.Measurement(sensor.MeasurementHumid); ok {
			record(name+"_humid", v)
		}
		return
	}
	record(name, reading.Value())
}

func (c *Cycle) listDevices(ctx context.Context) []device.Device {
	devs, err := c.devices.List(ctx)
	if err != nil {
		c.logger.Error("listing devices failed", "error", err)
		return nil
	}
	return devs
}

// applyTimeControl drives one time-scheduled device.
//
// On-edge: fires only in the minute matching auto_time, and only when
// the device is currently off, so a tick interval shorter than a minute
// cannot re-fire the schedule. Off-edge: fires once the configured
// duration has elapsed since last_auto_on.
func (c *Cycle) applyTimeControl(ctx context.Context, d *device.Device) {
	if !d.AutoEnabled {
		return
	}

	hm, err := device.ParseAutoTime(d.AutoTime)
	if err != nil {
		c.logger.Error("invalid auto_time", "device", d.Name, "error", err)
		return
	}

	now := c.now().In(c.location)

	if !d.CurrentStatus && now.Hour() == hm[0] && now.Minute() == hm[1] {
		c.switchDevice(ctx, d, true, &now)
		return
	}

	if d.CurrentStatus && d.LastAutoOn != nil {
		elapsed := now.Sub(*d.LastAutoOn)
		if elapsed >= time.Duration(d.AutoDurationMinutes)*time.Minute {
			c.switchDevice(ctx, d, false, nil)
		}
	}
}

// binding is one resolved sensor-to-device hysteresis assignment for
// this tick.
type binding struct {
	sensorName  string
	dev         *device.Device
	threshold   float64
	logic       control.Logic
	hysteresis  float64
	measurement string
}

// applySensorControl evaluates hysteresis control for every explicit
// rule plus every sensor-mode device carrying an embedded binding. An
// explicit rule wins over the embedded binding for the same pair.
// Readings come exclusively from this tick's map; a sensor that failed
// to read this tick simply leaves its devices untouched.
func (c *Cycle) applySensorControl(ctx context.Context, devs []device.Device, tick map[string]sensor.Reading) {
	byName := make(map[string]*device.Device, len(devs))
	for i := range devs {
		byName[devs[i].Name] = &devs[i]
	}

	rules, err := c.rules.List(ctx)
	if err != nil {
		c.logger.Error("listing rules failed", "error", err)
		rules = nil
	}

	var bindings []binding
	explicit := make(map[string]bool) // "sensor\x00actuator"

	for i := range rules {
		r := &rules[i]
		d, ok := byName[r.ActuatorName]
		if !ok {
			c.logger.Warn("rule references unknown device",
				"sensor", r.SensorName, "actuator", r.ActuatorName)
			continue
		}
		explicit[r.SensorName+"\x00"+r.ActuatorName] = true
		bindings = append(bindings, binding{
			sensorName:  r.SensorName,
			dev:         d,
			threshold:   r.Threshold,
			logic:       r.ControlLogic,
			hysteresis:  r.Hysteresis,
			measurement: r.Measurement,
		})
	}

	// Embedded device bindings, unless an explicit rule covers the pair.
	for i := range devs {
		d := &devs[i]
		if d.ControlMode != device.ControlModeSensor || d.SensorName == nil {
			continue
		}
		if d.Threshold == nil || d.ControlLogic == nil {
			continue
		}
		if explicit[*d.SensorName+"\x00"+d.Name] {
			continue
		}
		bindings = append(bindings, binding{
			sensorName: *d.SensorName,
			dev:        d,
			threshold:  *d.Threshold,
			logic:      *d.ControlLogic,
			hysteresis: d.Hysteresis,
		})
	}

	for _, b := range bindings {
		c.evaluateBinding(ctx, b, tick)
	}
}

// evaluateBinding runs one hysteresis evaluation.
func (c *Cycle) evaluateBinding(ctx context.Context, b binding, tick map[string]sensor.Reading) {
	if b.dev.Mode != device.ModeAuto {
		return
	}

	reading, ok := tick[b.sensorName]
	if !ok {
		// Sensor absent or failed this tick; leave the device as-is.
		return
	}

	act, err := c.pool.Get(b.dev.Name, b.dev.GPIOPin, b.dev.Simulate)
	if err != nil {
		c.logger.Error("actuator unavailable", "device", b.dev.Name, "error", err)
		return
	}

	ctrl := control.New(act, b.threshold, b.hysteresis, b.logic,
		control.WithMeasurement(b.measurement),
		control.WithActive(b.dev.CurrentStatus),
	)

	decision, err := ctrl.Evaluate(reading)
	if err != nil {
		c.logger.Warn("control evaluation error",
			"device", b.dev.Name, "sensor", b.sensorName,
			"decision", string(decision), "error", err)
	}
	if decision == control.DecisionNone {
		return
	}

	// The decided state is committed even when the actuator write
	// errored; the next tick re-asserts hardware from persisted status.
	on := ctrl.Active()
	b.dev.CurrentStatus = on
	if err := c.devices.SetStatus(ctx, b.dev.ID, on, nil); err != nil {
		c.logger.Error("persisting device status failed", "device", b.dev.Name, "error", err)
	}
	for _, p := range c.publishers {
		p.PublishDeviceState(b.dev.Name, on)
	}
	c.logger.Info("sensor control switched device",
		"device", b.dev.Name, "sensor", b.sensorName, "on", on)
}

// switchDevice drives a time-controlled device and persists the result.
func (c *Cycle) switchDevice(ctx context.Context, d *device.Device, on bool, firedAt *time.Time) {
	act, err := c.pool.Get(d.Name, d.GPIOPin, d.Simulate)
	if err != nil {
		c.logger.Error("actuator unavailable", "device", d.Name, "error", err)
		return
	}

	var actErr error
	if on {
		actErr = act.TurnOn()
	} else {
		actErr = act.TurnOff()
	}
	if actErr != nil {
		c.logger.Error("actuator write failed", "device", d.Name, "error", actErr)
	}

	d.CurrentStatus = on
	var lastAutoOn *time.Time
	if firedAt != nil {
		t := firedAt.UTC()
		d.LastAutoOn = &t
		lastAutoOn = &t
	}
	if err := c.devices.SetStatus(ctx, d.ID, on, lastAutoOn); err != nil {
		c.logger.Error("persisting device status failed", "device", d.Name, "error", err)
	}
	for _, p := range c.publishers {
		p.PublishDeviceState(d.Name, on)
	}
	c.logger.Info("time control switched device", "device", d.Name, "on", on)
}

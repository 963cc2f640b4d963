package actuator

import (
	"fmt"
	"sync"

	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
)

// Switch is the minimal on/off surface the hysteresis controller and the
// automation cycle drive. Actuator satisfies it.
type Switch interface {
	TurnOn() error
	TurnOff() error
}

// Driver abstracts the pin-level hardware access behind an Actuator.
// Implementations: gpioDriver (sysfs) and SimulatedDriver (log only).
type Driver interface {
	// Setup claims the pin and configures it as an output.
	Setup(pin int) error

	// Write drives the pin high (true) or low (false).
	Write(pin int, on bool) error

	// Release returns the pin to its unclaimed state.
	Release(pin int) error
}

// Actuator drives one relay-backed device (light, heater, valve, fan)
// on a GPIO pin. On/off calls are idempotent at this layer; hardware
// errors are returned for logging but never stop the automation cycle.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The automation cycle and
//     manual API control may touch the same actuator.
type Actuator struct {
	name   string
	pin    int
	driver Driver
	logger *logging.Logger

	mu       sync.Mutex
	on       bool
	released bool
}

// New creates an actuator on the given pin and claims the pin via the
// driver. Claiming failures are configuration faults and fail here.
//
// Parameters:
//   - name: Device name, used in logs
//   - pin: GPIO pin number (BCM numbering)
//   - driver: Hardware or simulated driver
//   - logger: Structured logger
//
// Returns:
//   - *Actuator: Ready actuator, pin claimed and driven low
//   - error: If the pin is invalid or cannot be claimed
func New(name string, pin int, driver Driver, logger *logging.Logger) (*Actuator, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("actuator %q: pin %d: %w", name, pin, ErrInvalidPin)
	}
	if err := driver.Setup(pin); err != nil {
		return nil, fmt.Errorf("actuator %q: claiming pin %d: %w", name, pin, err)
	}
	return &Actuator{
		name:   name,
		pin:    pin,
		driver: driver,
		logger: logger.With("actuator", name, "pin", pin),
	}, nil
}

// Name returns the actuator's device name.
func (a *Actuator) Name() string {
	return a.name
}

// Pin returns the GPIO pin the actuator drives.
func (a *Actuator) Pin() int {
	return a.pin
}

// IsOn reports the last commanded state.
func (a *Actuator) IsOn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.on
}

// TurnOn drives the pin high. Calling TurnOn on an already-on actuator
// re-asserts the hardware state; this self-heals external interference.
func (a *Actuator) TurnOn() error {
	return a.set(true)
}

// TurnOff drives the pin low. Like TurnOn, the write is re-asserted even
// when the commanded state is unchanged.
func (a *Actuator) TurnOff() error {
	return a.set(false)
}

func (a *Actuator) set(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return fmt.Errorf("actuator %q: %w", a.name, ErrReleased)
	}

	if err := a.driver.Write(a.pin, on); err != nil {
		// Commanded state is still recorded so the next cycle converges
		// rather than oscillating on a flaky pin.
		a.on = on
		return fmt.Errorf("actuator %q: writing pin %d: %w", a.name, a.pin, err)
	}

	if a.on != on {
		a.logger.Info("actuator switched", "on", on)
	}
	a.on = on
	return nil
}

// Release drives the pin low and returns it to the unclaimed state.
// Safe to call multiple times; only the first call touches hardware.
func (a *Actuator) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil
	}
	a.released = true

	var errs []error
	if err := a.driver.Write(a.pin, false); err != nil {
		errs = append(errs, fmt.Errorf("writing pin %d low: %w", a.pin, err))
	}
	if err := a.driver.Release(a.pin); err != nil {
		errs = append(errs, fmt.Errorf("releasing pin %d: %w", a.pin, err))
	}
	a.on = false

	if len(errs) > 0 {
		return fmt.Errorf("actuator %q: %v", a.name, errs)
	}
	a.logger.Debug("actuator released")
	return nil
}

// SimulatedDriver is a Driver that only logs pin operations. Used when a
// device is configured with simulate=true or the binary runs off-target.
type SimulatedDriver struct {
	logger *logging.Logger
}

// NewSimulatedDriver creates a log-only driver.
func NewSimulatedDriver(logger *logging.Logger) *SimulatedDriver {
	return &SimulatedDriver{logger: logger.With("component", "gpio-sim")}
}

// Setup logs the pin claim.
func (d *SimulatedDriver) Setup(pin int) error {
	d.logger.Debug("simulated pin setup", "pin", pin)
	return nil
}

// Write logs the pin write.
func (d *SimulatedDriver) Write(pin int, on bool) error {
	d.logger.Debug("simulated pin write", "pin", pin, "on", on)
	return nil
}

// Release logs the pin release.
func (d *SimulatedDriver) Release(pin int) error {
	d.logger.Debug("simulated pin release", "pin", pin)
	return nil
}

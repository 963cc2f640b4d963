package actuator

import (
	"fmt"
	"sync"

	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
)

// Pool caches actuators per pin so the automation cycle and manual API
// control share one claimed pin per device instead of re-exporting GPIO
// lines on every tick.
//
// Thread Safety:
//   - Safe for concurrent use.
type Pool struct {
	hardware  Driver
	simulated Driver
	logger    *logging.Logger

	mu        sync.Mutex
	actuators map[int]*Actuator
}

// NewPool creates an actuator pool.
//
// Parameters:
//   - hardware: Driver used for simulate=false devices
//   - simulated: Driver used for simulate=true devices
//   - logger: Structured logger
func NewPool(hardware, simulated Driver, logger *logging.Logger) *Pool {
	return &Pool{
		hardware:  hardware,
		simulated: simulated,
		logger:    logger,
		actuators: make(map[int]*Actuator),
	}
}

// Get returns the actuator for the pin, constructing and claiming it on
// first use. The name and simulate flag of the first caller win for the
// lifetime of the pool entry; two devices sharing a pin is a
// configuration mistake we tolerate rather than detect here.
//
// Parameters:
//   - name: Device name for logging
//   - pin: GPIO pin number
//   - simulate: Whether to use the simulated driver
//
// Returns:
//   - *Actuator: Cached or newly claimed actuator
//   - error: If claiming the pin fails
func (p *Pool) Get(name string, pin int, simulate bool) (*Actuator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.actuators[pin]; ok {
		return a, nil
	}

	driver := p.hardware
	if simulate {
		driver = p.simulated
	}

	a, err := New(name, pin, driver, p.logger)
	if err != nil {
		return nil, err
	}
	p.actuators[pin] = a
	return a, nil
}

// Drop releases the actuator on the pin and removes it from the pool.
// Used when a device's pin assignment changes.
func (p *Pool) Drop(pin int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.actuators[pin]
	if !ok {
		return nil
	}
	delete(p.actuators, pin)
	return a.Release()
}

// ReleaseAll drives every cached actuator low and releases its pin.
// Called on shutdown so the greenhouse is left in a safe state.
func (p *Pool) ReleaseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for pin, a := range p.actuators {
		if err := a.Release(); err != nil {
			errs = append(errs, err)
		}
		delete(p.actuators, pin)
	}

	if len(errs) > 0 {
		return fmt.Errorf("releasing actuators: %v", errs)
	}
	return nil
}

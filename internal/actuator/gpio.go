package actuator

import (
	"fmt"
	"os"
	"time"
)

// gpioBasePath is the sysfs GPIO root. Variable so tests can point it at
// a temporary directory.
var gpioBasePath = "/sys/class/gpio"

// sysfs settle delay: the gpio subsystem creates the per-pin directory
// asynchronously after export.
const exportSettleDelay = 100 * time.Millisecond

// GPIODriver drives pins through the Linux sysfs GPIO interface.
// No third-party GPIO bindings exist in our dependency set; sysfs is
// plain file I/O and needs nothing beyond the standard library.
type GPIODriver struct{}

// NewGPIODriver creates a sysfs-backed GPIO driver.
func NewGPIODriver() *GPIODriver {
	return &GPIODriver{}
}

// Setup exports the pin and configures it as an output driven low.
func (d *GPIODriver) Setup(pin int) error {
	pinDir := fmt.Sprintf("%s/gpio%d", gpioBasePath, pin)

	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		if err := writeGPIOFile(gpioBasePath+"/export", fmt.Sprintf("%d", pin)); err != nil {
			return fmt.Errorf("exporting pin %d: %w", pin, err)
		}
		time.Sleep(exportSettleDelay)
	}

	if err := writeGPIOFile(pinDir+"/direction", "out"); err != nil {
		return fmt.Errorf("setting pin %d direction: %w", pin, err)
	}
	if err := d.Write(pin, false); err != nil {
		return fmt.Errorf("initialising pin %d low: %w", pin, err)
	}
	return nil
}

// Write sets the pin value.
func (d *GPIODriver) Write(pin int, on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	path := fmt.Sprintf("%s/gpio%d/value", gpioBasePath, pin)
	if err := writeGPIOFile(path, value); err != nil {
		return fmt.Errorf("writing pin %d value: %w", pin, err)
	}
	return nil
}

// Release unexports the pin.
func (d *GPIODriver) Release(pin int) error {
	pinDir := fmt.Sprintf("%s/gpio%d", gpioBasePath, pin)
	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		return nil // never exported, nothing to do
	}
	if err := writeGPIOFile(gpioBasePath+"/unexport", fmt.Sprintf("%d", pin)); err != nil {
		return fmt.Errorf("unexporting pin %d: %w", pin, err)
	}
	return nil
}

func writeGPIOFile(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

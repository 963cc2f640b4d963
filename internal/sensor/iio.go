package sensor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// iioBasePath is the Linux industrial I/O sysfs root. Variable so tests
// can point it at a temporary directory.
var iioBasePath = "/sys/bus/iio/devices"

// IIOProbeDriver samples combined temperature/humidity probes exposed
// through the kernel's industrial I/O subsystem (the dht11 and hts221
// class of drivers). The pin number selects iio:device{pin}.
//
// Bit-banging DHT-style probes from user space is not reliably possible
// with garbage-collection pauses, so the timing-critical transaction is
// left to the kernel driver and this reads its sysfs output files. Plain
// file I/O; no third-party bindings needed.
type IIOProbeDriver struct{}

// NewIIOProbeDriver creates a sysfs-backed probe driver.
func NewIIOProbeDriver() *IIOProbeDriver {
	return &IIOProbeDriver{}
}

// Sample reads one combined sample. The kernel reports millidegrees
// Celsius and milli-percent relative humidity; temperature is converted
// to Fahrenheit to match the rest of the system.
func (d *IIOProbeDriver) Sample(_ context.Context, pin int) (ProbeSample, error) {
	devDir := fmt.Sprintf("%s/iio:device%d", iioBasePath, pin)

	milliC, err := readIIOValue(devDir + "/in_temp_input")
	if err != nil {
		return ProbeSample{}, fmt.Errorf("probe %d temperature: %w", pin, err)
	}
	milliRH, err := readIIOValue(devDir + "/in_humidityrelative_input")
	if err != nil {
		return ProbeSample{}, fmt.Errorf("probe %d humidity: %w", pin, err)
	}

	return ProbeSample{
		Temperature: celsiusToFahrenheit(milliC / 1000),
		Humidity:    milliRH / 1000,
	}, nil
}

func readIIOValue(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

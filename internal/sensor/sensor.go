package sensor

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Sensor is a readable sensor instance. Implementations are constructed
// from a Descriptor by New and are safe for use from the automation cycle.
type Sensor interface {
	// Name returns the sensor's configured name.
	Name() string

	// Read produces one reading. A returned error is a transient read
	// failure (typed *ReadError); the sensor remains usable on later ticks.
	Read(ctx context.Context) (Reading, error)
}

// Environment carries the shared hardware access a sensor may need.
// Simulated sensors ignore it entirely.
type Environment struct {
	// Probes serves combined temperature/humidity samples keyed by pin.
	// Required for hardware temperature and humidity sensors.
	Probes *ProbeCache
}

// New constructs a Sensor from its descriptor.
//
// Simulated sensors generate plausible values for their kind. Hardware
// sensors are only available for temperature and humidity (a combined
// probe keyed by the "pin" config entry); requesting hardware mode for
// any other kind is a configuration fault and fails here, not at read
// time.
//
// Parameters:
//   - desc: Sensor descriptor from the repository
//   - env: Shared hardware environment
//
// Returns:
//   - Sensor: Ready-to-read sensor
//   - error: ErrUnsupportedKind, ErrMissingPin, or a wrapped validation error
func New(desc *Descriptor, env Environment) (Sensor, error) {
	if !ValidKind(desc.Kind) {
		return nil, fmt.Errorf("sensor %q: unknown kind %q", desc.Name, desc.Kind)
	}

	if desc.Simulate {
		return &simulatedSensor{
			name:   desc.Name,
			kind:   desc.Kind,
			randFn: rand.Float64,
		}, nil
	}

	switch desc.Kind {
	case KindTemperature, KindHumidity:
		pin, ok := desc.Pin()
		if !ok {
			return nil, fmt.Errorf("sensor %q: %w", desc.Name, ErrMissingPin)
		}
		if env.Probes == nil {
			return nil, fmt.Errorf("sensor %q: no probe cache configured", desc.Name)
		}
		return &probeSensor{
			name:   desc.Name,
			pin:    pin,
			probes: env.Probes,
		}, nil
	default:
		return nil, fmt.Errorf("sensor %q (kind %s): %w", desc.Name, desc.Kind, ErrUnsupportedKind)
	}
}

// simulatedSensor generates pseudo-random readings in a realistic range
// for its kind. Used for development and for installations without the
// corresponding hardware.
type simulatedSensor struct {
	name   string
	kind   Kind
	randFn func() float64 // returns [0, 1)
}

func (s *simulatedSensor) Name() string {
	return s.name
}

// Read returns a simulated reading. Temperature is generated in Celsius
// and reported in Fahrenheit to match the hardware probe's output units.
func (s *simulatedSensor) Read(_ context.Context) (Reading, error) {
	switch s.kind {
	case KindTemperature:
		c := s.inRange(15, 30)
		return Scalar(celsiusToFahrenheit(c)), nil
	case KindHumidity:
		return Scalar(s.inRange(40, 70)), nil
	case KindCO2:
		return Scalar(s.inRange(400, 800)), nil
	case KindLight:
		return Scalar(s.inRange(100, 1000)), nil
	case KindSoilMoisture:
		return Scalar(s.inRange(200, 800)), nil
	case KindWindSpeed:
		return Scalar(s.inRange(0, 15)), nil
	default:
		return Reading{}, &ReadError{Sensor: s.name, Err: fmt.Errorf("unknown kind %q", s.kind)}
	}
}

// inRange returns a uniformly distributed value in [lo, hi].
func (s *simulatedSensor) inRange(lo, hi float64) float64 {
	return lo + s.randFn()*(hi-lo)
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// probeSensor reads a combined temperature/humidity probe through the
// shared cache. A single physical transaction yields both measurements,
// so temperature and humidity sensors on the same pin share one sample.
type probeSensor struct {
	name   string
	pin    int
	probes *ProbeCache
}

func (s *probeSensor) Name() string {
	return s.name
}

// Read returns a bundle reading with "temp" and "humid" measurements.
func (s *probeSensor) Read(ctx context.Context) (Reading, error) {
	sample, err := s.probes.Sample(ctx, s.pin)
	if err != nil {
		return Reading{}, &ReadError{Sensor: s.name, Err: err}
	}
	return Bundle(map[string]float64{
		MeasurementTemp:  sample.Temperature,
		MeasurementHumid: sample.Humidity,
	}), nil
}

package sensor

import "time"

// Kind identifies the physical quantity a sensor measures.
type Kind string

// Supported sensor kinds.
const (
	KindTemperature  Kind = "temperature"
	KindHumidity     Kind = "humidity"
	KindCO2          Kind = "co2"
	KindLight        Kind = "light"
	KindSoilMoisture Kind = "soil_moisture"
	KindWindSpeed    Kind = "wind_speed"
)

// ValidKind reports whether k is a recognised sensor kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindTemperature, KindHumidity, KindCO2, KindLight, KindSoilMoisture, KindWindSpeed:
		return true
	}
	return false
}

// Descriptor describes a configured sensor instance.
// Config holds driver-specific settings as a free-form map; hardware
// temperature and humidity sensors require a "pin" entry identifying
// the probe they read from.
type Descriptor struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     Kind           `json:"kind"`
	Config   map[string]any `json:"config"`
	Simulate bool           `json:"simulate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pin extracts the probe pin from the descriptor config.
// JSON round-trips numbers as float64; YAML-sourced maps may carry int.
func (d *Descriptor) Pin() (int, bool) {
	raw, ok := d.Config["pin"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Reading is the result of a single sensor read. It is either a scalar
// value or a bundle of named measurements from one physical transaction
// (a combined temperature/humidity probe produces a bundle).
//
// The zero Reading is a scalar zero; use Scalar or Bundle to construct.
type Reading struct {
	value  float64
	bundle map[string]float64
}

// Scalar constructs a single-value Reading.
func Scalar(v float64) Reading {
	return Reading{value: v}
}

// Bundle constructs a multi-measurement Reading. The map is used as-is;
// callers must not modify it afterwards.
func Bundle(m map[string]float64) Reading {
	return Reading{bundle: m}
}

// IsBundle reports whether the reading carries multiple named measurements.
func (r Reading) IsBundle() bool {
	return r.bundle != nil
}

// Value returns the scalar value. For a bundle reading it returns 0;
// callers should check IsBundle first or use Measurement.
func (r Reading) Value() float64 {
	return r.value
}

// Measurement returns the named measurement from a bundle reading.
// For a scalar reading any key returns the scalar value, so controllers
// configured with a measurement key work against both shapes.
func (r Reading) Measurement(key string) (float64, bool) {
	if r.bundle == nil {
		return r.value, true
	}
	v, ok := r.bundle[key]
	return v, ok
}

// Measurements returns the bundle map, or nil for a scalar reading.
// The returned map must not be modified.
func (r Reading) Measurements() map[string]float64 {
	return r.bundle
}

// Measurement keys produced by combined temperature/humidity probes.
const (
	MeasurementTemp  = "temp"
	MeasurementHumid = "humid"
)

package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ProbeSample is one combined reading from a temperature/humidity probe.
// Temperature is in Fahrenheit, humidity in percent relative humidity.
type ProbeSample struct {
	Temperature float64
	Humidity    float64
}

// ProbeDriver reads a physical combined probe on a GPIO pin.
// Implementations may fail transiently; the cache retries around them.
type ProbeDriver interface {
	Sample(ctx context.Context, pin int) (ProbeSample, error)
}

// ProbeDriverFunc adapts a function to the ProbeDriver interface.
type ProbeDriverFunc func(ctx context.Context, pin int) (ProbeSample, error)

// Sample calls f.
func (f ProbeDriverFunc) Sample(ctx context.Context, pin int) (ProbeSample, error) {
	return f(ctx, pin)
}

// ProbeCache serves combined probe samples with a validity window per pin.
//
// Cheap single-wire probes cannot be polled back-to-back reliably, and one
// physical transaction already carries both temperature and humidity. The
// cache makes repeated reads within the TTL (from either measurement's
// sensor) reuse the same sample instead of touching the hardware again.
//
// Thread Safety:
//   - Safe for concurrent use. A hardware read for a pin holds the lock,
//     serialising access to the probe bus.
type ProbeCache struct {
	driver     ProbeDriver
	ttl        time.Duration
	retries    int
	retryDelay time.Duration

	mu      sync.Mutex
	samples map[int]cachedSample
}

type cachedSample struct {
	sample ProbeSample
	at     time.Time
}

// NewProbeCache creates a probe cache over the given driver.
//
// Parameters:
//   - driver: Hardware (or simulated) probe driver
//   - ttl: How long a sample stays valid
//   - retries: Attempts per hardware read (minimum 1)
//   - retryDelay: Pause between attempts
func NewProbeCache(driver ProbeDriver, ttl time.Duration, retries int, retryDelay time.Duration) *ProbeCache {
	if retries < 1 {
		retries = 1
	}
	return &ProbeCache{
		driver:     driver,
		ttl:        ttl,
		retries:    retries,
		retryDelay: retryDelay,
		samples:    make(map[int]cachedSample),
	}
}

// Sample returns a probe sample for the pin, reading the hardware only
// when no sample within the TTL exists. Hardware reads are retried up to
// the configured attempt count before failing with ErrProbeRead.
//
// Parameters:
//   - ctx: Context for cancellation between retry attempts
//   - pin: GPIO pin the probe is wired to
//
// Returns:
//   - ProbeSample: Combined temperature/humidity sample
//   - error: ErrProbeRead (wrapped) after exhausting retries
func (c *ProbeCache) Sample(ctx context.Context, pin int) (ProbeSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.samples[pin]; ok && time.Since(cached.at) < c.ttl {
		return cached.sample, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		sample, err := c.driver.Sample(ctx, pin)
		if err == nil {
			c.samples[pin] = cachedSample{sample: sample, at: time.Now()}
			return sample, nil
		}
		lastErr = err

		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return ProbeSample{}, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}

	return ProbeSample{}, fmt.Errorf("%w: pin %d after %d attempts: %v",
		ErrProbeRead, pin, c.retries, lastErr)
}

// Invalidate drops any cached sample for the pin, forcing the next
// Sample call to touch the hardware.
func (c *ProbeCache) Invalidate(pin int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.samples, pin)
}

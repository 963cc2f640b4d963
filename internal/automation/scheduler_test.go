package automation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mossburn/greenhouse-core/internal/actuator"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
	"github.com/mossburn/greenhouse-core/internal/sensor"
)

// releaseTracker is a Driver that records which pins were released.
type releaseTracker struct {
	mu       sync.Mutex
	released []int
}

func (d *releaseTracker) Setup(_ int) error { return nil }

func (d *releaseTracker) Write(_ int, _ bool) error { return nil }

func (d *releaseTracker) Release(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = append(d.released, pin)
	return nil
}

func TestSchedulerReleasesPoolOnCancel(t *testing.T) {
	driver := &releaseTracker{}
	pool := actuator.NewPool(driver, driver, logging.Default())
	if _, err := pool.Get("heater", 22, true); err != nil {
		t.Fatalf("claiming pin: %v", err)
	}

	cycle := newTestCycle(t, CycleConfig{Pool: pool})
	sched := NewScheduler(cycle, pool, time.Hour, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	driver.mu.Lock()
	defer driver.mu.Unlock()
	if len(driver.released) != 1 || driver.released[0] != 22 {
		t.Errorf("released pins = %v, want [22]", driver.released)
	}
}

func TestSchedulerRunsFirstTickImmediately(t *testing.T) {
	sink := &mockReadingSink{}
	cycle := newTestCycle(t, CycleConfig{
		Sensors:  &mockSensorSource{descs: []sensor.Descriptor{simulatedDescriptor("co2", sensor.KindCO2)}},
		Readings: sink,
	})
	sched := NewScheduler(cycle, testPool(t), time.Hour, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	// The interval is an hour; any logged reading proves the first tick
	// executed without waiting for the ticker.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.entries) == 0 {
		t.Error("no readings logged; first tick did not run")
	}
}

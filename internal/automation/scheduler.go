package automation

import (
	"context"
	"time"

	"github.com/mossburn/greenhouse-core/internal/actuator"
	"github.com/mossburn/greenhouse-core/internal/infrastructure/logging"
)

// Scheduler runs the automation cycle on a fixed interval.
//
// Ticks are executed synchronously on the scheduler's goroutine, so a
// slow tick delays the next one rather than overlapping it. On context
// cancellation the scheduler releases every claimed actuator, leaving
// all devices off.
type Scheduler struct {
	cycle    *Cycle
	pool     *actuator.Pool
	interval time.Duration
	logger   *logging.Logger
}

// NewScheduler creates a scheduler over the given cycle.
//
// Parameters:
//   - cycle: Automation cycle to run each tick
//   - pool: Actuator pool to release on shutdown
//   - interval: Time between ticks
//   - logger: Structured logger
func NewScheduler(cycle *Cycle, pool *actuator.Pool, interval time.Duration, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		cycle:    cycle,
		pool:     pool,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Run ticks the cycle until ctx is cancelled. The first tick runs
// immediately. Always releases the actuator pool before returning.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval.String())

	defer func() {
		if err := s.pool.ReleaseAll(); err != nil {
			s.logger.Error("releasing actuators on shutdown", "error", err)
		} else {
			s.logger.Info("actuators released")
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.cycle.Run(ctx)
		}
	}
}

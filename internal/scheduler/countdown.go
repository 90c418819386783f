package scheduler

import (
	"context"
	"log/slog"
	"time"

	"cryptobot/internal/report"
)

// Clock is the read-only view of scheduler timing the countdown needs.
type Clock interface {
	LastUpdateStarted() time.Time
	Interval() time.Duration
}

// Countdown periodically reports the time left until the next update. It only reads
// scheduler state and never delays the scheduler.
type Countdown struct {
	logger   *slog.Logger
	clock    Clock
	period   time.Duration
	announce func(text string)
	now      func() time.Time
}

// NewCountdown creates a Countdown ticking every period. announce may be nil.
func NewCountdown(logger *slog.Logger, clock Clock, period time.Duration, announce func(text string)) *Countdown {
	return &Countdown{
		logger:   logger,
		clock:    clock,
		period:   period,
		announce: announce,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (c *Countdown) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		c.Tick()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick emits one report if the next update is still ahead. It returns the remaining time.
func (c *Countdown) Tick() time.Duration {
	remaining := c.clock.Interval() - c.now().Sub(c.clock.LastUpdateStarted())
	if remaining <= 0 {
		return 0
	}

	text := report.Countdown(remaining)
	c.logger.Info("Countdown: time remaining for next update", "remaining", remaining.Truncate(time.Second).String())
	if c.announce != nil {
		c.announce(text)
	}
	return remaining
}

package sampler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// MinInterval is the floor for the sampling period regardless of how often
// the main collection cycle reports.
const MinInterval = 10 * time.Second

// Interval clamps the configured reporting interval to the sampling floor.
func Interval(updateEvery time.Duration) time.Duration {
	if updateEvery < MinInterval {
		return MinInterval
	}
	return updateEvery
}

// ProbeFunc samples one device and returns its reading (zero on failure).
type ProbeFunc func(ctx context.Context, idx int) int64

// Sampler refreshes an array of last-known readings, one slot per device,
// on a fixed period. Slots are single-word atomic stores: the foreground
// collection cycle reads them lock-free, last writer wins.
type Sampler struct {
	name     string
	interval time.Duration
	probe    ProbeFunc
	readings []atomic.Int64
}

// New creates a sampler for the given device count. The interval should
// already be clamped via Interval.
func New(name string, devices int, interval time.Duration, probe ProbeFunc) *Sampler {
	return &Sampler{
		name:     name,
		interval: interval,
		probe:    probe,
		readings: make([]atomic.Int64, devices),
	}
}

// Reading returns the last-known reading for a device index.
func (s *Sampler) Reading(idx int) int64 {
	return s.readings[idx].Load()
}

// Devices returns the number of device slots.
func (s *Sampler) Devices() int {
	return len(s.readings)
}

// SampleOnce refreshes every device slot, overwriting the previous value
// regardless of whether the new reading is the failure sentinel.
func (s *Sampler) SampleOnce(ctx context.Context) {
	for idx := range s.readings {
		s.readings[idx].Store(s.probe(ctx, idx))
	}
}

// Run samples all devices on the configured period until the context is
// canceled. An iteration that overruns the period catches up a single step:
// the next sample waits until the next scheduled boundary, or a full
// interval from completion when the overrun exceeds a whole period.
func (s *Sampler) Run(ctx context.Context) error {
	slog.Debug("sampling loop started",
		slog.String("sampler", s.name),
		slog.Duration("interval", s.interval),
		slog.Int("devices", len(s.readings)))

	for {
		start := time.Now()
		s.SampleOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(nextDelay(s.interval, time.Since(start))):
		}
	}
}

// nextDelay implements the single-step catch-up policy.
func nextDelay(interval, elapsed time.Duration) time.Duration {
	d := interval - elapsed
	switch {
	case d >= 0:
		return d
	case interval+d >= 0:
		return interval + d
	default:
		return interval
	}
}

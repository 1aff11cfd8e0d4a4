package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/swarm64/fpgamon/pkg/collector"
	"github.com/swarm64/fpgamon/pkg/config"
	"github.com/swarm64/fpgamon/pkg/serializer"
)

// Agent drives the collector on its reporting tick: each tick runs one
// collection cycle, serializes the resulting report, and records
// self-metrics. A failed cycle is logged and the tick skipped; the
// collector reconnects on the next one.
type Agent struct {
	cfg *config.Config
	col *collector.Collector
	out serializer.Serializer

	runID string
	host  string

	// onReport, when set, receives every completed report. Used by the
	// HTTP endpoint to expose the latest snapshot.
	onReport func(*Report)
}

// Option customizes agent construction.
type Option func(*Agent)

// WithReportHook registers a callback invoked with every completed report.
func WithReportHook(fn func(*Report)) Option {
	return func(a *Agent) {
		a.onReport = fn
	}
}

// New creates an agent for an already-constructed collector.
func New(cfg *config.Config, col *collector.Collector, out serializer.Serializer, opts ...Option) *Agent {
	host, _ := os.Hostname()
	a := &Agent{
		cfg:   cfg,
		col:   col,
		out:   out,
		runID: uuid.New().String(),
		host:  host,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the sensor sampling loops (when enabled) and the reporting
// ticker, blocking until the context is canceled.
func (a *Agent) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.CheckTempPower {
		temp, power := a.col.Samplers()
		g.Go(func() error { return ignoreCanceled(temp.Run(gctx)) })
		g.Go(func() error { return ignoreCanceled(power.Run(gctx)) })
	}

	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.UpdateEvery)
		defer ticker.Stop()

		slog.Info("reporting loop started",
			slog.Duration("update_every", a.cfg.UpdateEvery),
			slog.String("run_id", a.runID))

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				a.tick(gctx)
			}
		}
	})

	return g.Wait()
}

// tick runs one cycle; errors skip the interval rather than stopping the
// loop.
func (a *Agent) tick(ctx context.Context) {
	rep, err := a.CollectReport(ctx)
	if err != nil {
		slog.Error("collection cycle failed, skipping interval", slog.String("error", err.Error()))
		return
	}

	if err := a.out.Serialize(ctx, rep); err != nil {
		slog.Error("failed to serialize report", slog.String("error", err.Error()))
	}
}

// CollectReport runs one collection cycle and assembles the report.
func (a *Agent) CollectReport(ctx context.Context) (*Report, error) {
	start := time.Now()

	snap, err := a.col.Collect(ctx)
	if err != nil {
		cycleTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("collection cycle failed: %w", err)
	}

	cycleDuration.Observe(time.Since(start).Seconds())
	cycleTotal.WithLabelValues("success").Inc()
	seriesCount.Set(float64(len(snap)))

	rep := buildReport(a.runID, a.host, a.col.Registry(), snap)
	if a.onReport != nil {
		a.onReport(rep)
	}
	return rep, nil
}

// ignoreCanceled filters the expected shutdown error so a graceful stop is
// not reported as a failure.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/swarm64/fpgamon/pkg/agent"
	"github.com/swarm64/fpgamon/pkg/collector"
	"github.com/swarm64/fpgamon/pkg/config"
	"github.com/swarm64/fpgamon/pkg/serializer"
	"github.com/swarm64/fpgamon/pkg/server"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:                  "run",
		EnableShellCompletion: true,
		Usage:                 "Run the collector daemon",
		Description: `Run the collector as a long-lived daemon. Each reporting interval it:
  - queries the accelerated database for FPGA statistics
  - merges the latest temperature/power sensor readings (when enabled)
  - emits the report to the configured output

It also serves an operational HTTP endpoint with health/readiness probes,
Prometheus self-metrics, and the latest report at /v1/report.`,
		Flags: []cli.Flag{
			configFlag,
			dsnFlag,
			tempPowerFlag,
			puDDRFlag,
			outputFlag,
			formatFlag,
			&cli.DurationFlag{
				Name:    "update-every",
				Usage:   "Base reporting interval",
				Sources: cli.EnvVars("FPGAMON_UPDATE_EVERY"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Port for the operational HTTP endpoint",
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("update-every") {
				cfg.UpdateEvery = cmd.Duration("update-every")
			}
			if cmd.IsSet("port") {
				cfg.Port = int(cmd.Int("port"))
			}

			return runDaemon(ctx, cfg)
		},
	}
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	col, err := collector.New(ctx, collector.Config{
		DSN:            cfg.DSN,
		IntelCmd:       cfg.IntelCmd,
		XilinxCmd:      cfg.XilinxCmd,
		CheckTempPower: cfg.CheckTempPower,
		PUDDRStats:     cfg.PUDDRStatsEnable,
		UpdateEvery:    cfg.UpdateEvery,
	})
	if err != nil {
		return fmt.Errorf("failed to create collector: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := col.Close(closeCtx); err != nil {
			slog.Warn("failed to close collector", "error", err)
		}
	}()

	out := serializer.NewFileWriterOrStdout(serializer.Format(cfg.Format), cfg.Output)
	defer func() {
		if err := out.Close(); err != nil {
			slog.Warn("failed to close report writer", "error", err)
		}
	}()

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Address
	srvCfg.Port = cfg.Port
	srv := server.New(srvCfg)

	a := agent.New(cfg, col, out, agent.WithReportHook(srv.StoreReport))

	slog.Info("starting daemon",
		slog.String("version", version),
		slog.Duration("update_every", cfg.UpdateEvery),
		slog.Int("devices", col.DeviceCount()),
		slog.Int("port", cfg.Port))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

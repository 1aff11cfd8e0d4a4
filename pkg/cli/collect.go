package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/swarm64/fpgamon/pkg/agent"
	"github.com/swarm64/fpgamon/pkg/collector"
	"github.com/swarm64/fpgamon/pkg/serializer"
)

func collectCmd() *cli.Command {
	return &cli.Command{
		Name:                  "collect",
		EnableShellCompletion: true,
		Usage:                 "Run a single collection cycle and print the report",
		Description: `Run one collection cycle against the accelerated database and write the
resulting report to the configured output. Sensor probing, when enabled,
samples the vendor tools once instead of running the background loops.

The report can be output in JSON, YAML, or table format.`,
		Flags: []cli.Flag{
			configFlag,
			dsnFlag,
			tempPowerFlag,
			puDDRFlag,
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

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

			if cfg.CheckTempPower {
				col.SampleSensorsOnce(ctx)
			}

			out := serializer.NewFileWriterOrStdout(serializer.Format(cfg.Format), cfg.Output)
			defer func() {
				if err := out.Close(); err != nil {
					slog.Warn("failed to close report writer", "error", err)
				}
			}()

			a := agent.New(cfg, col, out)
			rep, err := a.CollectReport(ctx)
			if err != nil {
				return err
			}

			if err := out.Serialize(ctx, rep); err != nil {
				return fmt.Errorf("failed to serialize report: %w", err)
			}

			slog.Info("collection completed",
				slog.Int("devices", col.DeviceCount()),
				slog.Int("charts", len(rep.Charts)))
			return nil
		},
	}
}

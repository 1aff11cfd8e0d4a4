package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/swarm64/fpgamon/pkg/config"
	"github.com/swarm64/fpgamon/pkg/logging"
	"github.com/swarm64/fpgamon/pkg/serializer"
)

const (
	name           = "fpgamon"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Flags shared by the collecting commands.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the YAML config file",
		Sources: cli.EnvVars("FPGAMON_CONFIG"),
	}

	dsnFlag = &cli.StringFlag{
		Name:    "dsn",
		Usage:   "PostgreSQL connection string for the accelerated database",
		Sources: cli.EnvVars("FPGAMON_DSN"),
	}

	tempPowerFlag = &cli.BoolFlag{
		Name:    "check-temp-power",
		Usage:   "Probe vendor tools for FPGA temperature and power",
		Sources: cli.EnvVars("FPGAMON_CHECK_TEMP_POWER"),
	}

	puDDRFlag = &cli.BoolFlag{
		Name:    "pu-ddr-stats",
		Usage:   "Collect extended processing unit and DDR statistics",
		Sources: cli.EnvVars("FPGAMON_PU_DDR_STATS"),
	}

	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Report destination (file path, or '-' for stdout)",
		Sources: cli.EnvVars("FPGAMON_OUTPUT"),
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Usage:   fmt.Sprintf("Report format (supported values: %s)", serializer.SupportedFormats()),
		Sources: cli.EnvVars("FPGAMON_FORMAT"),
	}
)

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "FPGA accelerator metrics collector",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("FPGAMON_LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			runCmd(),
			collectCmd(),
		},
	}
}

// loadConfig builds the effective configuration from the config file, the
// environment, and any flags the caller set explicitly.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("dsn") {
		cfg.DSN = cmd.String("dsn")
	}
	if cmd.IsSet("check-temp-power") {
		cfg.CheckTempPower = cmd.Bool("check-temp-power")
	}
	if cmd.IsSet("pu-ddr-stats") {
		cfg.PUDDRStatsEnable = cmd.Bool("pu-ddr-stats")
	}
	if cmd.IsSet("output") {
		cfg.Output = cmd.String("output")
	}
	if cmd.IsSet("format") {
		cfg.Format = cmd.String("format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the CLI with graceful shutdown on SIGINT/SIGTERM. This is
// called by main.main().
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

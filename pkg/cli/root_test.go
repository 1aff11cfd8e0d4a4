package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/swarm64/fpgamon/pkg/config"
)

// runLoadConfig executes loadConfig through a throwaway command so flag
// parsing behaves exactly as in the real commands.
func runLoadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var cfg *config.Config
	var loadErr error
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			configFlag, dsnFlag, tempPowerFlag, puDDRFlag, outputFlag, formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, loadErr = loadConfig(cmd)
			return nil
		},
	}
	require.NoError(t, cmd.Run(t.Context(), append([]string{"test"}, args...)))
	return cfg, loadErr
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	cfg, err := runLoadConfig(t,
		"--dsn", "postgres://localhost/db",
		"--check-temp-power",
		"--format", "yaml",
		"--output", "/tmp/report.yaml")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/db", cfg.DSN)
	assert.True(t, cfg.CheckTempPower)
	assert.False(t, cfg.PUDDRStatsEnable)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "/tmp/report.yaml", cfg.Output)

	// defaults survive where no flag was set
	assert.Equal(t, config.DefaultUpdateEvery, cfg.UpdateEvery)
	assert.Equal(t, config.DefaultIntelCmd, cfg.IntelCmd)
}

func TestLoadConfig_MissingDSN(t *testing.T) {
	_, err := runLoadConfig(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestLoadConfig_BadFormat(t *testing.T) {
	_, err := runLoadConfig(t, "--dsn", "postgres://localhost/db", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestRootCmd_Structure(t *testing.T) {
	root := rootCmd()
	require.Len(t, root.Commands, 2)
	assert.Equal(t, "run", root.Commands[0].Name)
	assert.Equal(t, "collect", root.Commands[1].Name)
}

func TestRunCmd_DurationFlag(t *testing.T) {
	var got time.Duration
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "update-every"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			got = cmd.Duration("update-every")
			return nil
		},
	}
	require.NoError(t, cmd.Run(t.Context(), []string{"test", "--update-every", "30s"}))
	assert.Equal(t, 30*time.Second, got)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the collector daemon.
const (
	DefaultUpdateEvery = 10 * time.Second
	DefaultIntelCmd    = "/usr/bin/fpgainfo"
	DefaultXilinxCmd   = "/opt/xilinx/xrt/bin/xbutil"
	DefaultPort        = 8399
	DefaultFormat      = "json"
)

// Config holds the daemon configuration, loaded from an optional YAML file
// and overridable through environment variables and CLI flags.
type Config struct {
	// DSN is the PostgreSQL connection string for the FPGA stats view.
	DSN string `yaml:"dsn"`

	// IntelCmd and XilinxCmd are the vendor tool paths used for
	// temperature/power probing; the first usable one selects the vendor.
	IntelCmd  string `yaml:"intel_cmd"`
	XilinxCmd string `yaml:"xilinx_cmd"`

	// CheckTempPower enables temperature/power collection.
	CheckTempPower bool `yaml:"check_temp_power"`

	// PUDDRStatsEnable enables the extended utilisation/DDR statistics.
	PUDDRStatsEnable bool `yaml:"pu_ddr_stats_enable"`

	// UpdateEvery is the base reporting interval.
	UpdateEvery time.Duration `yaml:"update_every"`

	// Output is the report destination ("" or "-" for stdout, else a file).
	Output string `yaml:"output"`

	// Format is the report format: json, yaml, or table.
	Format string `yaml:"format"`

	// Address and Port bind the operational HTTP endpoint.
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		IntelCmd:    DefaultIntelCmd,
		XilinxCmd:   DefaultXilinxCmd,
		UpdateEvery: DefaultUpdateEvery,
		Format:      DefaultFormat,
		Port:        DefaultPort,
	}
}

// Load reads configuration from the YAML file at path (skipped when path is
// empty), then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides fields from FPGAMON_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("FPGAMON_DSN"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("FPGAMON_INTEL_CMD"); v != "" {
		c.IntelCmd = v
	}
	if v := os.Getenv("FPGAMON_XILINX_CMD"); v != "" {
		c.XilinxCmd = v
	}
	if v := os.Getenv("FPGAMON_UPDATE_EVERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.UpdateEvery = d
		}
	}
	if v := os.Getenv("FPGAMON_CHECK_TEMP_POWER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CheckTempPower = b
		}
	}
	if v := os.Getenv("FPGAMON_PU_DDR_STATS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.PUDDRStatsEnable = b
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if c.UpdateEvery <= 0 {
		return fmt.Errorf("update_every must be positive, got %s", c.UpdateEvery)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.Format {
	case "json", "yaml", "table":
	default:
		return fmt.Errorf("unknown format: %q", c.Format)
	}
	return nil
}

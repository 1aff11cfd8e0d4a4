// Package cli implements the command-line interface for the fpgamon
// collector.
//
// # Commands
//
// run - Start the collector daemon:
//
//	fpgamond run --dsn postgres://... [--check-temp-power] [--pu-ddr-stats]
//
// Runs the reporting loop, the sensor sampling loops (when enabled), and the
// operational HTTP endpoint until interrupted.
//
// collect - Run a single collection cycle:
//
//	fpgamond collect --dsn postgres://... [--output FILE] [--format json|yaml|table]
//
// # Configuration
//
// Settings are resolved in order of precedence: CLI flags, FPGAMON_*
// environment variables, the YAML config file, built-in defaults.
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/swarm64/fpgamon/pkg/cli.version=1.0.0'"
package cli

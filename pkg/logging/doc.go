// Package logging provides structured logging utilities for the fpgamon
// collector.
//
// It wraps the standard library slog package with project defaults:
// structured JSON output to stderr, module/version context on every record,
// and source location tracking for debug logs.
//
// # Usage
//
// Setting the default logger (recommended):
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("fpgamon", version)
//
//	    // Use slog as normal
//	    slog.Info("collection cycle completed", "devices", 2)
//	}
//
// Creating a custom logger:
//
//	logger := logging.NewStructuredLogger("fpgamon", "v1.0.0", "debug")
//	logger.Info("daemon starting", "port", 8399)
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls verbosity when no explicit
// level is given:
//
//	LOG_LEVEL=debug fpgamond collect
//
// If LOG_LEVEL is not set, defaults to INFO level.
//
// Supported log levels (case-insensitive): DEBUG, INFO, WARN/WARNING, ERROR.
package logging

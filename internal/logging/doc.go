// Package logging provides structured logging for wifiman.
//
// The package wraps a global zap logger with convenience functions so that
// the supervisor, the config server and the observers all log the same way.
//
// # Log Levels
//
//   - Debug: raw request bytes, per-poll connection status, scan entries
//   - Info: setup cycles, events, config server requests
//   - Warn: recoverable failures (skipped scan records, schema mismatch)
//   - Error: failures that abort a cycle or stop the config server
//
// # Configuration
//
// The daemon initializes logging at startup:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// With an empty level the WIFIMAN_LOG_LEVEL environment variable is used,
// and when that is unset too the logger is a no-op.
//
// # Components
//
// Packages that want their own prefix take a child logger:
//
//	log := logging.Named("supervisor")
//	log.Info("Setup cycle finished", zap.Bool("connected", ok))
package logging

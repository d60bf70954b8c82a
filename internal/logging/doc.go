// Package logging provides structured logging for the OPM500 driver.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the driver. It provides both general logging functions
// and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (command/response hex dumps, raw bytes)
//   - Info: Normal operations (port open/close, handshake, state changes)
//   - Warn: Non-fatal issues (acknowledgment mismatches, retries)
//   - Error: Fatal issues (open failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Instrument connected",
//	    zap.String("port", "/dev/ttyUSB0"),
//	    zap.String("serial", "12345"),
//	    zap.String("firmware", "1.2"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
// Port Lifecycle Logging:
//
//	logging.LogPortEvent(port, "opened")
//	logging.LogPortEvent(port, "handshake_complete")
//	logging.LogPortEvent(port, "closed")
//
// Protocol Logging:
//
//	logging.LogCommand(port, "$U")
//	logging.LogResponse(port, "U OK", elapsed)
//	logging.LogRawBytes("receive buffer", buf)
//
// # Configuration
//
// Logging is silent by default so CLI output stays clean. Set the
// OPM500_LOG_LEVEL environment variable to enable it:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging

// Package logging provides structured service logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// The simulation's session log is separate from this logger; the frame
// engine mirrors every session entry here at the matching level.
//
// Example:
//
//	logger := logging.NewDefault()
//	logger.Info("server starting", zap.String("addr", ":8080"))
package logging

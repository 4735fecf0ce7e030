// Package main runs the IPC visualizer server.
//
// The server owns the simulation: a frame engine advances packets while the
// simulation is running, browsers watch it over a WebSocket at /stream, and
// the REST API under /api accepts the same actions the page sends.
//
// Configuration, lowest precedence first:
//   - Defaults
//   - .env and .env.local in the working directory
//   - Environment variables (PORT, SIM_MECHANISM, LOG_LEVEL, ...)
//   - The -config file (YAML or TOML)
//   - CLI flags
//
// Usage:
//
//	# Serve on :8080 and open the page
//	./server -open
//
//	# Development mode (colored logs, debug level)
//	./server -dev -config ipcviz.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

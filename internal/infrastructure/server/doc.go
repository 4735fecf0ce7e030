// Package server wires configuration, logging, metrics, the simulation
// engine and the HTTP/WebSocket transport into one runnable server.
package server

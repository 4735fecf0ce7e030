// Package client is a REST client for a running visualizer. Calls go through
// a retrying transport and a circuit breaker; rejections by the simulation
// come back as *APIError and match ErrRejected.
package client

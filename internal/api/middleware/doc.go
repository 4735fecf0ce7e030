// Package middleware holds the gin middleware shared by the HTTP API: CORS
// for pages served from another origin, plus rate and body size limits for
// the control endpoints.
package middleware

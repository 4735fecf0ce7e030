// Package types holds the JSON bodies shared by the HTTP API and its client.
//
// Requests:
//   - MechanismRequest, ProcessRequest, DraftRequest, MessageRequest
//
// Responses:
//   - ActionResponse, ErrorResponse
//   - StateResponse, LogResponse, MechanismsResponse, HealthResponse
package types

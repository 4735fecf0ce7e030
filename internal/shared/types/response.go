package types

import (
	"time"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
)

// ActionResponse is returned when an action was applied
type ActionResponse struct {
	Phase   sim.Phase   `json:"phase"`
	Entries []sim.Entry `json:"entries"`
	Cleared bool        `json:"cleared,omitempty"`
	Packet  *sim.Packet `json:"packet,omitempty"`
}

// ErrorResponse is returned for rejected or malformed requests. For
// rejected actions Error is the session log line and Code the reason.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Phase     sim.Phase `json:"phase,omitempty"`
	Attention bool      `json:"attention,omitempty"`
}

// StateResponse wraps a state snapshot
type StateResponse struct {
	Seq   uint64    `json:"seq"`
	State sim.State `json:"state"`
}

// LogResponse lists session log entries
type LogResponse struct {
	Entries []sim.Entry `json:"entries"`
}

// MechanismsResponse lists supported mechanisms and the active one
type MechanismsResponse struct {
	Current    sim.Mechanism       `json:"current"`
	Mechanisms []sim.MechanismInfo `json:"mechanisms"`
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Phase     sim.Phase `json:"phase"`
	InFlight  int       `json:"in_flight"`
	WSClients int       `json:"ws_clients"`
	StartedAt time.Time `json:"started_at"`
}

package ws

import (
	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/engine"
	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/id"
)

// Server to client message types.
const (
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypeAck     = "ack"
	TypeError   = "error"
	TypePong    = "pong"
	TypeResync  = "resync"
)

var resyncMessage = []byte(`{"type":"` + TypeResync + `"}`)

// TypePing is the keep-alive request clients may send.
const TypePing = "ping"

// Inbound is a client message. Every type except "ping" is a sim.Action; ID
// is echoed in the reply so clients can match acks to requests.
type Inbound struct {
	ID string `json:"id,omitempty"`
	sim.Action
}

// Outbound is a server message. Only the fields relevant to Type are set.
type Outbound struct {
	Type       string              `json:"type"`
	ID         string              `json:"id,omitempty"`
	ClientID   id.ClientID         `json:"client_id,omitempty"`
	Snapshot   *engine.Snapshot    `json:"snapshot,omitempty"`
	Mechanisms []sim.MechanismInfo `json:"mechanisms,omitempty"`
	Frame      *engine.Frame       `json:"frame,omitempty"`
	Phase      sim.Phase           `json:"phase,omitempty"`
	Code       string              `json:"code,omitempty"`
	Error      string              `json:"error,omitempty"`
	Attention  bool                `json:"attention,omitempty"`
}

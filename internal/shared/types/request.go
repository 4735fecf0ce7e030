package types

import "github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"

// MechanismRequest selects the IPC mechanism
type MechanismRequest struct {
	Mechanism string `json:"mechanism" binding:"required"`
}

// ProcessRequest selects a process in the source or target picker
type ProcessRequest struct {
	ProcessID sim.ProcessID `json:"process_id" binding:"required"`
}

// DraftRequest updates the message field
type DraftRequest struct {
	Text string `json:"text"`
}

// MessageRequest queues a message. Text may be blank; the simulation
// rejects it with a logged warning.
type MessageRequest struct {
	Text   string        `json:"text"`
	Source sim.ProcessID `json:"source" binding:"required"`
	Target sim.ProcessID `json:"target" binding:"required"`
}

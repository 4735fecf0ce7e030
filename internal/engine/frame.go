package engine

import (
	"time"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/render"
)

// Reason tells subscribers why a frame was produced.
type Reason string

const (
	ReasonTick   Reason = "tick"
	ReasonAction Reason = "action"
)

// Frame is everything a client needs to redraw after one step.
type Frame struct {
	Seq     uint64       `json:"seq"`
	Time    time.Time    `json:"time"`
	Reason  Reason       `json:"reason"`
	State   sim.State    `json:"state"`
	Scene   render.Scene `json:"scene"`
	Entries []sim.Entry  `json:"entries,omitempty"`
	Cleared bool         `json:"cleared,omitempty"`
}

// Snapshot is a full copy of the simulation, including the whole log.
type Snapshot struct {
	Seq     uint64       `json:"seq"`
	State   sim.State    `json:"state"`
	Scene   render.Scene `json:"scene"`
	Entries []sim.Entry  `json:"entries"`
}

// Publisher receives every frame. Publish is called from the engine
// goroutine and must not block.
type Publisher interface {
	Publish(Frame)
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc func(Frame)

// Publish calls the underlying function.
func (f PublisherFunc) Publish(fr Frame) {
	if f != nil {
		f(fr)
	}
}

// Recorder receives simulation metrics. monitoring.Metrics implements it.
type Recorder interface {
	RecordSent(mechanism string)
	RecordDelivered(mechanism string, latency time.Duration)
	RecordRejection(reason string)
	RecordReset()
	RecordFrame(duration time.Duration)
	SetInFlight(n int)
	SetRunning(running bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordSent(string)                     {}
func (nopRecorder) RecordDelivered(string, time.Duration) {}
func (nopRecorder) RecordRejection(string)                {}
func (nopRecorder) RecordReset()                          {}
func (nopRecorder) RecordFrame(time.Duration)             {}
func (nopRecorder) SetInFlight(int)                       {}
func (nopRecorder) SetRunning(bool)                       {}

package sim

import (
	"math"
	"time"

	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/id"
)

// arrivalEpsilon absorbs float error in steps*speed near 1.
const arrivalEpsilon = 1e-9

// Packet is one in-flight message.
type Packet struct {
	ID        id.PacketID `json:"id"`
	Position  Point       `json:"position"`
	Start     Point       `json:"start"`
	Target    Point       `json:"target"`
	Progress  float64     `json:"progress"`
	Speed     float64     `json:"speed"`
	Payload   string      `json:"payload"`
	Source    ProcessID   `json:"source"`
	Dest      ProcessID   `json:"dest"`
	Mechanism Mechanism   `json:"mechanism"`
	Delivered bool        `json:"delivered"`
	SentAt    time.Time   `json:"sent_at"`

	steps int
}

func newPacket(src, dst Process, payload string, speed float64, mech Mechanism, now time.Time) *Packet {
	return &Packet{
		ID:        id.NewPacketID(),
		Position:  src.Position,
		Start:     src.Position,
		Target:    dst.Position,
		Speed:     speed,
		Payload:   payload,
		Source:    src.ID,
		Dest:      dst.ID,
		Mechanism: mech,
		SentAt:    now,
	}
}

// advance moves the packet one frame and reports whether it arrived on this
// step. Delivered packets do not move.
func (p *Packet) advance() bool {
	if p.Delivered {
		return false
	}

	p.steps++
	p.Progress = float64(p.steps) * p.Speed
	if p.Progress >= 1-arrivalEpsilon {
		p.Progress = 1
		p.Position = p.Target
		p.Delivered = true
		return true
	}

	p.Position = Lerp(p.Start, p.Target, p.Progress)
	return false
}

// StepsToArrive is the number of ticks a packet of the given speed needs.
func StepsToArrive(speed float64) int {
	return int(math.Ceil(1/speed - arrivalEpsilon))
}

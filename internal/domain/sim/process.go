package sim

import (
	"fmt"
	"time"
)

// ProcessID identifies a process node. IDs start at 1.
type ProcessID int

// Process is one of the circular nodes on the canvas.
type Process struct {
	ID       ProcessID `json:"id"`
	Name     string    `json:"name"`
	Position Point     `json:"position"`
	Radius   float64   `json:"radius"`

	// HighlightUntil is zero unless the process recently received a packet.
	HighlightUntil time.Time `json:"highlight_until,omitempty"`
}

// Highlighted reports whether the receive highlight is still showing at now
func (p Process) Highlighted(now time.Time) bool {
	return !p.HighlightUntil.IsZero() && now.Before(p.HighlightUntil)
}

// Connection joins two processes. Its mechanism only picks the line color.
type Connection struct {
	A         ProcessID `json:"a"`
	B         ProcessID `json:"b"`
	Mechanism Mechanism `json:"mechanism"`
}

// Joins reports whether the connection links p and q, in either order
func (c Connection) Joins(p, q ProcessID) bool {
	return (c.A == p && c.B == q) || (c.A == q && c.B == p)
}

// Layout describes the canvas the processes are placed on.
type Layout struct {
	Width         float64
	Height        float64
	ProcessRadius float64
}

// DefaultLayout matches the 600x300 canvas of the browser page
func DefaultLayout() Layout {
	return Layout{Width: 600, Height: 300, ProcessRadius: 35}
}

// seedProcesses places two processes at 20% and 80% of the width, centered
// vertically.
func seedProcesses(l Layout) []Process {
	fractions := []float64{0.2, 0.8}
	procs := make([]Process, 0, len(fractions))
	for i, f := range fractions {
		pid := ProcessID(i + 1)
		procs = append(procs, Process{
			ID:       pid,
			Name:     fmt.Sprintf("Process %d", pid),
			Position: Point{X: l.Width * f, Y: l.Height / 2},
			Radius:   l.ProcessRadius,
		})
	}
	return procs
}

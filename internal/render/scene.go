// Package render turns simulation state into a display list and rasterizes
// display lists to images. Nothing in this package mutates the state it is
// given.
package render

import (
	"time"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
)

// OpKind names a drawing primitive.
type OpKind string

const (
	OpClear  OpKind = "clear"
	OpRect   OpKind = "rect"
	OpLine   OpKind = "line"
	OpCircle OpKind = "circle"
	OpText   OpKind = "text"
)

// Op is one drawing instruction. Fields not used by a kind are left zero.
type Op struct {
	Kind      OpKind  `json:"op"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	X2        float64 `json:"x2,omitempty"`
	Y2        float64 `json:"y2,omitempty"`
	W         float64 `json:"w,omitempty"`
	H         float64 `json:"h,omitempty"`
	R         float64 `json:"r,omitempty"`
	Fill      string  `json:"fill,omitempty"`
	Stroke    string  `json:"stroke,omitempty"`
	LineWidth float64 `json:"line_width,omitempty"`
	LineCap   string  `json:"line_cap,omitempty"`
	Text      string  `json:"text,omitempty"`
	Font      string  `json:"font,omitempty"`
}

// Scene is an ordered display list for one frame.
type Scene struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ops    []Op    `json:"ops"`
}

// Theme holds the palette and stroke sizes of the canvas.
type Theme struct {
	Background     string
	LineWidth      float64
	ProcessFill    string
	ProcessActive  string
	ProcessBorder  string
	ProcessBorderW float64
	LabelColor     string
	LabelFont      string
	PacketRadius   float64
	PacketFill     string
	PacketBorder   string
	PacketBorderW  float64
}

// DefaultTheme is the palette of the browser page.
func DefaultTheme() Theme {
	return Theme{
		Background:     "#f8f9fa",
		LineWidth:      3,
		ProcessFill:    "#3498db",
		ProcessActive:  "#2ecc71",
		ProcessBorder:  "#2980b9",
		ProcessBorderW: 2,
		LabelColor:     "#ffffff",
		LabelFont:      "bold 14px Arial",
		PacketRadius:   8,
		PacketFill:     "#f1c40f",
		PacketBorder:   "#f39c12",
		PacketBorderW:  1,
	}
}

// Compose draws st as it looks at now. The order is background, connection,
// processes, packets, so packets are drawn over the nodes they leave.
func Compose(st sim.State, now time.Time, th Theme) Scene {
	ops := make([]Op, 0, 2+1+2*len(st.Processes)+len(st.Packets))
	ops = append(ops,
		Op{Kind: OpClear, W: st.Width, H: st.Height},
		Op{Kind: OpRect, W: st.Width, H: st.Height, Fill: th.Background},
	)

	a, okA := st.Process(st.Connection.A)
	b, okB := st.Process(st.Connection.B)
	if okA && okB {
		ops = append(ops, Op{
			Kind:      OpLine,
			X:         a.Position.X,
			Y:         a.Position.Y,
			X2:        b.Position.X,
			Y2:        b.Position.Y,
			Stroke:    st.Connection.Mechanism.Color(),
			LineWidth: th.LineWidth,
			LineCap:   "round",
		})
	}

	for _, p := range st.Processes {
		fill := th.ProcessFill
		if p.Highlighted(now) {
			fill = th.ProcessActive
		}
		ops = append(ops,
			Op{
				Kind:      OpCircle,
				X:         p.Position.X,
				Y:         p.Position.Y,
				R:         p.Radius,
				Fill:      fill,
				Stroke:    th.ProcessBorder,
				LineWidth: th.ProcessBorderW,
			},
			Op{
				Kind: OpText,
				X:    p.Position.X,
				Y:    p.Position.Y,
				Text: p.Name,
				Fill: th.LabelColor,
				Font: th.LabelFont,
			},
		)
	}

	for _, pk := range st.Packets {
		ops = append(ops, Op{
			Kind:      OpCircle,
			X:         pk.Position.X,
			Y:         pk.Position.Y,
			R:         th.PacketRadius,
			Fill:      th.PacketFill,
			Stroke:    th.PacketBorder,
			LineWidth: th.PacketBorderW,
		})
	}

	return Scene{Width: st.Width, Height: st.Height, Ops: ops}
}

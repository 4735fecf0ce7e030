package sim

import "fmt"

// Mechanism is the IPC mechanism being illustrated. It only affects colors
// and display names.
type Mechanism string

const (
	MechanismPipe         Mechanism = "pipe"
	MechanismMessageQueue Mechanism = "messageQueue"
	MechanismSharedMemory Mechanism = "sharedMemory"
)

// Mechanisms lists every supported mechanism in display order
func Mechanisms() []Mechanism {
	return []Mechanism{MechanismPipe, MechanismMessageQueue, MechanismSharedMemory}
}

// Valid reports whether m is one of the supported mechanisms
func (m Mechanism) Valid() bool {
	switch m {
	case MechanismPipe, MechanismMessageQueue, MechanismSharedMemory:
		return true
	default:
		return false
	}
}

// DisplayName returns the human readable name used in log lines
func (m Mechanism) DisplayName() string {
	switch m {
	case MechanismPipe:
		return "Named Pipe"
	case MechanismMessageQueue:
		return "Message Queue"
	case MechanismSharedMemory:
		return "Shared Memory"
	default:
		return "Unknown"
	}
}

// Color returns the connection line color as a CSS hex string
func (m Mechanism) Color() string {
	switch m {
	case MechanismPipe:
		return "#3498db"
	case MechanismMessageQueue:
		return "#e67e22"
	case MechanismSharedMemory:
		return "#9b59b6"
	default:
		return "#2c3e50"
	}
}

// ParseMechanism converts a wire tag into a Mechanism
func ParseMechanism(tag string) (Mechanism, error) {
	m := Mechanism(tag)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMechanism, tag)
	}
	return m, nil
}

// MechanismInfo describes a mechanism for pickers and legends.
type MechanismInfo struct {
	Tag   Mechanism `json:"tag"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// Catalog describes every supported mechanism in display order
func Catalog() []MechanismInfo {
	out := make([]MechanismInfo, 0, 3)
	for _, m := range Mechanisms() {
		out = append(out, MechanismInfo{Tag: m, Name: m.DisplayName(), Color: m.Color()})
	}
	return out
}

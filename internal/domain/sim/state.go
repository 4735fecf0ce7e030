package sim

// Phase is the lifecycle phase of the simulation.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
)

// State is a point-in-time copy of everything the controller owns, except
// the session log. Mutating a State never affects the controller.
type State struct {
	Phase      Phase      `json:"phase"`
	Mechanism  Mechanism  `json:"mechanism"`
	Processes  []Process  `json:"processes"`
	Connection Connection `json:"connection"`
	Packets    []Packet   `json:"packets"`
	Selection  Selection  `json:"selection"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
}

// Running reports whether frames should be advancing
func (s State) Running() bool {
	return s.Phase == PhaseRunning
}

// Process looks up a process by id
func (s State) Process(pid ProcessID) (Process, bool) {
	if p := findProcess(s.Processes, pid); p != nil {
		return *p, true
	}
	return Process{}, false
}

// InFlight returns the number of active packets
func (s State) InFlight() int {
	return len(s.Packets)
}

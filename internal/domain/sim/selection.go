package sim

// Selection is the state of the source/target pickers and the message field.
// Source and Target are never equal once normalized.
type Selection struct {
	Source ProcessID `json:"source"`
	Target ProcessID `json:"target"`
	Draft  string    `json:"draft"`
}

// options returns the ids of every process except the excluded one
func options(procs []Process, exclude ProcessID) []ProcessID {
	out := make([]ProcessID, 0, len(procs))
	for _, p := range procs {
		if p.ID != exclude {
			out = append(out, p.ID)
		}
	}
	return out
}

// keepOrFirst returns current if it is among opts, else the first option.
// Zero means no option exists.
func keepOrFirst(opts []ProcessID, current ProcessID) ProcessID {
	for _, o := range opts {
		if o == current {
			return current
		}
	}
	if len(opts) == 0 {
		return 0
	}
	return opts[0]
}

// TargetOptions lists the processes the target picker offers
func (s Selection) TargetOptions(procs []Process) []ProcessID {
	return options(procs, s.Source)
}

// SourceOptions lists the processes the source picker offers
func (s Selection) SourceOptions(procs []Process) []ProcessID {
	return options(procs, s.Target)
}

// withSource picks a new source and re-derives the target
func (s Selection) withSource(procs []Process, src ProcessID) Selection {
	s.Source = src
	s.Target = keepOrFirst(options(procs, src), s.Target)
	return s
}

// withTarget picks a new target and re-derives the source
func (s Selection) withTarget(procs []Process, dst ProcessID) Selection {
	s.Target = dst
	s.Source = keepOrFirst(options(procs, dst), s.Source)
	return s
}

// normalize repairs a selection that refers to missing processes.
func (s Selection) normalize(procs []Process) Selection {
	if len(procs) == 0 {
		return s
	}
	if findProcess(procs, s.Source) == nil {
		s.Source = procs[0].ID
	}
	return s.withSource(procs, s.Source)
}

func findProcess(procs []Process, pid ProcessID) *Process {
	for i := range procs {
		if procs[i].ID == pid {
			return &procs[i]
		}
	}
	return nil
}

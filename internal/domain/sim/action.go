package sim

import "fmt"

// ActionKind enumerates the user actions the controller understands.
type ActionKind string

const (
	ActionStart           ActionKind = "start"
	ActionStop            ActionKind = "stop"
	ActionToggle          ActionKind = "toggle"
	ActionReset           ActionKind = "reset"
	ActionChangeMechanism ActionKind = "mechanism"
	ActionSubmitMessage   ActionKind = "send"
	ActionSelectSource    ActionKind = "source"
	ActionSelectTarget    ActionKind = "target"
	ActionSetDraft        ActionKind = "draft"
)

// Action is a user action. Only the fields relevant to Kind are read.
type Action struct {
	Kind      ActionKind `json:"type"`
	Mechanism Mechanism  `json:"mechanism,omitempty"`
	Text      string     `json:"text,omitempty"`
	Source    ProcessID  `json:"source,omitempty"`
	Target    ProcessID  `json:"target,omitempty"`
	Process   ProcessID  `json:"process_id,omitempty"`
}

func Start() Action  { return Action{Kind: ActionStart} }
func Stop() Action   { return Action{Kind: ActionStop} }
func Toggle() Action { return Action{Kind: ActionToggle} }
func Reset() Action  { return Action{Kind: ActionReset} }

// ChangeMechanism switches the mechanism, which implies a reset
func ChangeMechanism(m Mechanism) Action {
	return Action{Kind: ActionChangeMechanism, Mechanism: m}
}

// Submit queues text from src to dst
func Submit(text string, src, dst ProcessID) Action {
	return Action{Kind: ActionSubmitMessage, Text: text, Source: src, Target: dst}
}

// SelectSource changes the source picker
func SelectSource(pid ProcessID) Action {
	return Action{Kind: ActionSelectSource, Process: pid}
}

// SelectTarget changes the target picker
func SelectTarget(pid ProcessID) Action {
	return Action{Kind: ActionSelectTarget, Process: pid}
}

// SetDraft updates the pending message text
func SetDraft(text string) Action {
	return Action{Kind: ActionSetDraft, Text: text}
}

// ParseActionKind validates a wire action name
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionStart, ActionStop, ActionToggle, ActionReset, ActionChangeMechanism,
		ActionSubmitMessage, ActionSelectSource, ActionSelectTarget, ActionSetDraft:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

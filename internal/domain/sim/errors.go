package sim

import "errors"

// Rejections. None of them change simulation state.
var (
	ErrNotRunning       = errors.New("simulation not started")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageTooLong   = errors.New("message too long")
	ErrSameProcess      = errors.New("source and target processes are the same")
	ErrUnknownProcess   = errors.New("unknown process")
	ErrUnknownMechanism = errors.New("unknown mechanism")
	ErrUnknownAction    = errors.New("unknown action")
)

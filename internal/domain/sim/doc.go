// Package sim holds the state and rules of the IPC visualizer.
//
// A Controller owns two process nodes joined by one connection, a set of
// in-flight packets and the session log. It changes only in response to a
// closed set of user actions (Dispatch) and to animation frames (Tick).
// Nothing in this package blocks, spawns goroutines or locks; callers that
// share a Controller between goroutines must serialize access, which is what
// the engine package does.
//
// Lifecycle:
//
//	Idle --start/toggle--> Running --stop/toggle--> Idle
//	any  --reset/mechanism change--> Idle (packets and log cleared)
//
// A packet created at progress 0 reaches its target after exactly
// ceil(1/speed) ticks, is logged as received, and is removed in that same tick.
package sim

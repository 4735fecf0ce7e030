// Package engine runs the simulation. A single goroutine owns the
// controller: user actions arrive over a channel, frame ticks arrive from a
// FrameScheduler, and every resulting frame is handed to the subscribed
// publishers. The scheduler runs only while the simulation is Running.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/render"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("engine stopped")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger that mirrors the session log
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithScheduler replaces the default 60 fps ticker
func WithScheduler(s FrameScheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithRecorder reports simulation metrics to r
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithTheme changes the scene palette
func WithTheme(t render.Theme) Option {
	return func(e *Engine) { e.theme = t }
}

type command struct {
	run  func()
	done chan struct{}
}

// Engine serializes all access to a sim.Controller.
type Engine struct {
	ctrl    *sim.Controller
	sched   FrameScheduler
	logger  *zap.Logger
	metrics Recorder
	theme   render.Theme

	cmds chan command
	done chan struct{}

	// owned by the Run goroutine
	ticking bool
	seq     uint64

	pubMu      sync.RWMutex
	publishers []Publisher
}

// New wraps ctrl. The engine does nothing until Run is called.
func New(ctrl *sim.Controller, opts ...Option) *Engine {
	e := &Engine{
		ctrl:    ctrl,
		logger:  zap.NewNop(),
		metrics: nopRecorder{},
		theme:   render.DefaultTheme(),
		cmds:    make(chan command),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = NewTickerScheduler(time.Second / 60)
	}
	return e
}

// Subscribe adds a publisher. Safe to call while the engine runs.
func (e *Engine) Subscribe(p Publisher) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	e.publishers = append(e.publishers, p)
}

// Run processes actions and ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.sched.Stop()

	e.mirror(e.ctrl.Entries())
	e.metrics.SetRunning(e.ctrl.Running())
	e.syncScheduler()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping")
			return nil
		case cmd := <-e.cmds:
			cmd.run()
			close(cmd.done)
		case now := <-e.sched.C():
			e.tick(now)
		}
	}
}

// Done is closed once Run has returned
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// do runs fn on the engine goroutine and waits for it.
func (e *Engine) do(ctx context.Context, fn func()) error {
	cmd := command{run: fn, done: make(chan struct{})}
	select {
	case e.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
	// a received command always completes
	<-cmd.done
	return nil
}

// Dispatch applies one user action. The returned error is about delivery to
// the engine; rejections by the simulation are reported in Result.Err.
func (e *Engine) Dispatch(ctx context.Context, a sim.Action) (sim.Result, error) {
	var res sim.Result
	err := e.do(ctx, func() {
		res = e.apply(a)
	})
	return res, err
}

// Snapshot copies the current state, scene and full session log.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, func() {
		st := e.ctrl.State()
		snap = Snapshot{
			Seq:     e.seq,
			State:   st,
			Scene:   render.Compose(st, e.ctrl.Now(), e.theme),
			Entries: e.ctrl.Entries(),
		}
	})
	return snap, err
}

// EntriesSince returns session log entries newer than seq.
func (e *Engine) EntriesSince(ctx context.Context, seq uint64) ([]sim.Entry, error) {
	var out []sim.Entry
	err := e.do(ctx, func() {
		out = e.ctrl.EntriesSince(seq)
	})
	return out, err
}

// Config returns the simulation parameters. They never change, so no
// round trip through the engine goroutine is needed.
func (e *Engine) Config() sim.Config {
	return e.ctrl.Config()
}

func (e *Engine) apply(a sim.Action) sim.Result {
	res := e.ctrl.Dispatch(a)
	e.mirror(res.Entries)

	switch {
	case res.Err != nil:
		e.metrics.RecordRejection(RejectionReason(res.Err))
	case res.Packet != nil:
		e.metrics.RecordSent(string(res.Packet.Mechanism))
	case res.Cleared:
		e.metrics.RecordReset()
	}
	e.metrics.SetRunning(e.ctrl.Running())
	e.metrics.SetInFlight(len(e.ctrl.State().Packets))

	e.syncScheduler()
	if res.Changed() {
		e.publish(ReasonAction, res.Entries, res.Cleared)
	}
	return res
}

func (e *Engine) tick(now time.Time) {
	if !e.ctrl.Running() {
		e.syncScheduler()
		return
	}

	start := time.Now()
	res := e.ctrl.Tick()
	e.mirror(res.Entries)
	for _, p := range res.Delivered {
		e.metrics.RecordDelivered(string(p.Mechanism), e.ctrl.Now().Sub(p.SentAt))
	}

	e.publish(ReasonTick, res.Entries, false)
	e.metrics.SetInFlight(len(e.ctrl.State().Packets))
	e.metrics.RecordFrame(time.Since(start))
	e.syncScheduler()
}

// syncScheduler starts or stops the frame clock to follow the lifecycle.
func (e *Engine) syncScheduler() {
	running := e.ctrl.Running()
	switch {
	case running && !e.ticking:
		e.sched.Start()
		e.ticking = true
	case !running && e.ticking:
		e.sched.Stop()
		e.ticking = false
	}
}

func (e *Engine) publish(reason Reason, entries []sim.Entry, cleared bool) {
	e.seq++
	st := e.ctrl.State()
	now := e.ctrl.Now()
	fr := Frame{
		Seq:     e.seq,
		Time:    now,
		Reason:  reason,
		State:   st,
		Scene:   render.Compose(st, now, e.theme),
		Entries: entries,
		Cleared: cleared,
	}

	e.pubMu.RLock()
	defer e.pubMu.RUnlock()
	for _, p := range e.publishers {
		p.Publish(fr)
	}
}

// mirror copies session log entries into the service log.
func (e *Engine) mirror(entries []sim.Entry) {
	for _, en := range entries {
		fields := []zap.Field{zap.Uint64("seq", en.Seq), zap.String("log", "session")}
		switch en.Level {
		case sim.LevelError:
			e.logger.Error(en.Message, fields...)
		case sim.LevelWarn:
			e.logger.Warn(en.Message, fields...)
		default:
			e.logger.Info(en.Message, fields...)
		}
	}
}

// RejectionReason maps a simulation error to a metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, sim.ErrNotRunning):
		return "not_running"
	case errors.Is(err, sim.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, sim.ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, sim.ErrSameProcess):
		return "same_process"
	case errors.Is(err, sim.ErrUnknownProcess):
		return "unknown_process"
	case errors.Is(err, sim.ErrUnknownMechanism):
		return "unknown_mechanism"
	default:
		return "invalid_action"
	}
}

package sim

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Config holds the fixed parameters of a simulation.
type Config struct {
	Layout            Layout
	Mechanism         Mechanism
	PacketSpeed       float64       // progress gained per frame, in (0, 1]
	HighlightDuration time.Duration // how long a receiving process stays highlighted
	MaxMessageRunes   int           // longest payload accepted, in characters
}

// MaxCanvasSide bounds each canvas dimension, since frames are rasterized in
// memory.
const MaxCanvasSide = 4096

// DefaultConfig returns the parameters of the classroom page
func DefaultConfig() Config {
	return Config{
		Layout:            DefaultLayout(),
		Mechanism:         MechanismPipe,
		PacketSpeed:       0.015,
		HighlightDuration: 500 * time.Millisecond,
		MaxMessageRunes:   280,
	}
}

// Validate checks that cfg can drive a simulation
func (c Config) Validate() error {
	w, h := c.Layout.Width, c.Layout.Height
	if !(w > 0 && w <= MaxCanvasSide) || !(h > 0 && h <= MaxCanvasSide) {
		return fmt.Errorf("canvas sides must be in (0, %d], got %vx%v", MaxCanvasSide, w, h)
	}
	if !(c.Layout.ProcessRadius > 0) {
		return fmt.Errorf("process radius must be positive, got %v", c.Layout.ProcessRadius)
	}
	if !c.Mechanism.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMechanism, c.Mechanism)
	}
	if !(c.PacketSpeed > 0 && c.PacketSpeed <= 1) {
		return fmt.Errorf("packet speed must be in (0, 1], got %v", c.PacketSpeed)
	}
	if c.HighlightDuration < 0 {
		return fmt.Errorf("highlight duration must not be negative, got %v", c.HighlightDuration)
	}
	if c.MaxMessageRunes < 1 {
		return fmt.Errorf("message limit must be positive, got %d", c.MaxMessageRunes)
	}
	return nil
}

// Option customizes a Controller
type Option func(*Controller)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Result describes what a dispatched action did.
type Result struct {
	// Entries are the log lines the action appended, oldest first.
	Entries []Entry
	// Cleared is set when the log was emptied before Entries were appended.
	Cleared bool
	// Attention asks the UI to flash the start control.
	Attention bool
	// Packet is the packet an accepted submission created.
	Packet *Packet
	// Phase is the lifecycle phase after the action.
	Phase Phase
	// Err is non-nil when the action was rejected.
	Err error
}

// Changed reports whether the action produced anything to redraw
func (r Result) Changed() bool {
	return r.Err == nil || len(r.Entries) > 0
}

// TickResult describes one animation frame.
type TickResult struct {
	Delivered []Packet
	Entries   []Entry
}

// Controller is the visualizer state machine. It is not safe for concurrent
// use.
type Controller struct {
	cfg Config
	now func() time.Time

	phase      Phase
	mechanism  Mechanism
	processes  []Process
	connection Connection
	packets    []*Packet
	selection  Selection
	journal    *Journal
}

// NewController validates cfg, seeds the processes and logs the
// initialization.
func NewController(cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:       cfg,
		now:       time.Now,
		phase:     PhaseIdle,
		mechanism: cfg.Mechanism,
		journal:   NewJournal(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.selection = Selection{Source: 1, Target: 2}
	c.initialize()
	return c, nil
}

// initialize re-seeds processes and the connection from the current mechanism.
func (c *Controller) initialize() Entry {
	c.processes = seedProcesses(c.cfg.Layout)
	c.connection = Connection{
		A:         c.processes[0].ID,
		B:         c.processes[1].ID,
		Mechanism: c.mechanism,
	}
	c.selection = c.selection.normalize(c.processes)
	return c.journal.append(c.now(), LevelInfo, "Initialized with %s mechanism.", c.mechanism.DisplayName())
}

// Dispatch applies one user action.
func (c *Controller) Dispatch(a Action) Result {
	var res Result
	switch a.Kind {
	case ActionStart:
		res = c.start()
	case ActionStop:
		res = c.stop()
	case ActionToggle:
		if c.phase == PhaseRunning {
			res = c.stop()
		} else {
			res = c.start()
		}
	case ActionReset:
		res = c.reset()
	case ActionChangeMechanism:
		res = c.changeMechanism(a.Mechanism)
	case ActionSubmitMessage:
		res = c.submit(a.Text, a.Source, a.Target)
	case ActionSelectSource:
		res = c.selectProcess(a.Process, true)
	case ActionSelectTarget:
		res = c.selectProcess(a.Process, false)
	case ActionSetDraft:
		c.selection.Draft = a.Text
	default:
		res.Err = fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
	res.Phase = c.phase
	return res
}

func (c *Controller) start() Result {
	if c.phase == PhaseRunning {
		return Result{}
	}
	c.phase = PhaseRunning
	return Result{Entries: []Entry{c.journal.append(c.now(), LevelInfo, "Simulation started.")}}
}

// stop halts the frame loop but keeps packets where they are.
func (c *Controller) stop() Result {
	if c.phase == PhaseIdle {
		return Result{}
	}
	c.phase = PhaseIdle
	return Result{Entries: []Entry{c.journal.append(c.now(), LevelInfo, "Simulation stopped.")}}
}

func (c *Controller) reset() Result {
	c.clear()
	return Result{
		Cleared: true,
		Entries: []Entry{
			c.journal.append(c.now(), LevelInfo, "Simulation reset."),
			c.initialize(),
		},
	}
}

func (c *Controller) clear() {
	c.phase = PhaseIdle
	c.packets = nil
	c.selection.Draft = ""
	c.journal.Clear()
}

func (c *Controller) changeMechanism(m Mechanism) Result {
	if !m.Valid() {
		e := c.journal.append(c.now(), LevelError, "Cannot change IPC type: unknown type %q.", string(m))
		return Result{Entries: []Entry{e}, Err: fmt.Errorf("%w: %q", ErrUnknownMechanism, m)}
	}
	if m == c.mechanism {
		return Result{}
	}

	c.mechanism = m
	c.clear()
	return Result{
		Cleared: true,
		Entries: []Entry{
			c.journal.append(c.now(), LevelInfo, "IPC type changed to: %s", m.DisplayName()),
			c.journal.append(c.now(), LevelInfo, "Simulation reset."),
			c.initialize(),
		},
	}
}

func (c *Controller) submit(text string, srcID, dstID ProcessID) Result {
	now := c.now()
	reject := func(level Level, err error, msg string) Result {
		return Result{
			Entries:   []Entry{c.journal.append(now, level, "%s", msg)},
			Attention: errors.Is(err, ErrNotRunning),
			Err:       err,
		}
	}

	if c.phase != PhaseRunning {
		return reject(LevelError, ErrNotRunning, "Cannot send message: Simulation not started.")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return reject(LevelWarn, ErrEmptyMessage, "Cannot send: Message is empty.")
	}
	if srcID == dstID {
		return reject(LevelWarn, ErrSameProcess, "Cannot send: Source and Target processes cannot be the same.")
	}
	src, dst := findProcess(c.processes, srcID), findProcess(c.processes, dstID)
	if src == nil || dst == nil {
		return reject(LevelError, ErrUnknownProcess, "Error: Invalid process ID selected.")
	}
	if n := utf8.RuneCountInString(text); n > c.cfg.MaxMessageRunes {
		return reject(LevelWarn, ErrMessageTooLong,
			fmt.Sprintf("Cannot send: Message is %d characters, the limit is %d.", n, c.cfg.MaxMessageRunes))
	}

	p := newPacket(*src, *dst, text, c.cfg.PacketSpeed, c.mechanism, now)
	c.packets = append(c.packets, p)
	c.selection.Draft = ""

	e := c.journal.append(now, LevelInfo, "Process %d sending \"%s\" to Process %d via %s.",
		src.ID, text, dst.ID, c.mechanism.DisplayName())
	sent := *p
	return Result{Entries: []Entry{e}, Packet: &sent}
}

func (c *Controller) selectProcess(pid ProcessID, source bool) Result {
	if findProcess(c.processes, pid) == nil {
		return Result{Err: fmt.Errorf("%w: %d", ErrUnknownProcess, pid)}
	}
	if source {
		c.selection = c.selection.withSource(c.processes, pid)
	} else {
		c.selection = c.selection.withTarget(c.processes, pid)
	}
	return Result{}
}

// Tick advances every packet by one frame, logs arrivals and drops delivered
// packets. It does nothing while Idle.
func (c *Controller) Tick() TickResult {
	var res TickResult
	if c.phase != PhaseRunning {
		return res
	}

	now := c.now()
	for _, p := range c.packets {
		if !p.advance() {
			continue
		}
		res.Entries = append(res.Entries, c.journal.append(now, LevelInfo,
			"Process %d received \"%s\" from Process %d.", p.Dest, p.Payload, p.Source))
		if dst := findProcess(c.processes, p.Dest); dst != nil {
			dst.HighlightUntil = now.Add(c.cfg.HighlightDuration)
		}
		res.Delivered = append(res.Delivered, *p)
	}

	if len(res.Delivered) > 0 {
		kept := c.packets[:0]
		for _, p := range c.packets {
			if !p.Delivered {
				kept = append(kept, p)
			}
		}
		for i := len(kept); i < len(c.packets); i++ {
			c.packets[i] = nil
		}
		c.packets = kept
	}
	return res
}

// State returns a copy of the current state
func (c *Controller) State() State {
	procs := make([]Process, len(c.processes))
	copy(procs, c.processes)

	packets := make([]Packet, 0, len(c.packets))
	for _, p := range c.packets {
		packets = append(packets, *p)
	}

	return State{
		Phase:      c.phase,
		Mechanism:  c.mechanism,
		Processes:  procs,
		Connection: c.connection,
		Packets:    packets,
		Selection:  c.selection,
		Width:      c.cfg.Layout.Width,
		Height:     c.cfg.Layout.Height,
	}
}

// Running reports whether the simulation is in the Running phase
func (c *Controller) Running() bool {
	return c.phase == PhaseRunning
}

// Entries returns the whole session log
func (c *Controller) Entries() []Entry {
	return c.journal.Entries()
}

// EntriesSince returns log entries newer than seq
func (c *Controller) EntriesSince(seq uint64) []Entry {
	return c.journal.Since(seq)
}

// Config returns the parameters the controller was built with
func (c *Controller) Config() Config {
	return c.cfg
}

// Now returns the controller's clock reading
func (c *Controller) Now() time.Time {
	return c.now()
}

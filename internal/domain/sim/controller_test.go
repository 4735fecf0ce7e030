package sim

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestController(t *testing.T) (*Controller, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	c, err := NewController(DefaultConfig(), WithClock(clock.Now))
	require.NoError(t, err)
	return c, clock
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestNewControllerSeedsProcesses(t *testing.T) {
	c, _ := newTestController(t)
	st := c.State()

	require.Len(t, st.Processes, 2)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.InDelta(t, 120, st.Processes[0].Position.X, 1e-9)
	assert.InDelta(t, 480, st.Processes[1].Position.X, 1e-9)
	assert.Equal(t, 150.0, st.Processes[0].Position.Y)
	assert.Equal(t, "Process 1", st.Processes[0].Name)
	assert.Equal(t, 35.0, st.Processes[1].Radius)
	assert.True(t, st.Connection.Joins(1, 2))
	assert.Equal(t, MechanismPipe, st.Connection.Mechanism)
	assert.Equal(t, Selection{Source: 1, Target: 2}, st.Selection)

	assert.Equal(t, []string{"Initialized with Named Pipe mechanism."}, messages(c.Entries()))
}

func TestNewControllerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero speed", func(c *Config) { c.PacketSpeed = 0 }},
		{"speed above one", func(c *Config) { c.PacketSpeed = 1.5 }},
		{"unknown mechanism", func(c *Config) { c.Mechanism = "socket" }},
		{"empty canvas", func(c *Config) { c.Layout.Width = 0 }},
		{"negative highlight", func(c *Config) { c.HighlightDuration = -time.Second }},
		{"NaN speed", func(c *Config) { c.PacketSpeed = math.NaN() }},
		{"NaN canvas", func(c *Config) { c.Layout.Height = math.NaN() }},
		{"huge canvas", func(c *Config) { c.Layout.Width = MaxCanvasSide + 1 }},
		{"no message limit", func(c *Config) { c.MaxMessageRunes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewController(cfg)
			assert.Error(t, err)
		})
	}
}

func TestToggleStartStop(t *testing.T) {
	c, _ := newTestController(t)

	res := c.Dispatch(Toggle())
	require.NoError(t, res.Err)
	assert.Equal(t, PhaseRunning, res.Phase)
	assert.Equal(t, []string{"Simulation started."}, messages(res.Entries))

	// start while running is a no-op
	res = c.Dispatch(Start())
	assert.Empty(t, res.Entries)
	assert.True(t, c.Running())

	res = c.Dispatch(Toggle())
	assert.Equal(t, PhaseIdle, res.Phase)
	assert.Equal(t, []string{"Simulation stopped."}, messages(res.Entries))

	res = c.Dispatch(Stop())
	assert.Empty(t, res.Entries)
}

func TestStopKeepsPackets(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Start())
	require.NoError(t, c.Dispatch(Submit("ping", 1, 2)).Err)
	c.Tick()

	c.Dispatch(Stop())
	st := c.State()
	require.Len(t, st.Packets, 1)
	assert.InDelta(t, 0.015, st.Packets[0].Progress, 1e-12)

	// no movement while idle
	c.Tick()
	assert.InDelta(t, 0.015, c.State().Packets[0].Progress, 1e-12)
}

func TestSubmitAccepted(t *testing.T) {
	c, clock := newTestController(t)
	c.Dispatch(Start())
	c.Dispatch(SetDraft("  ping  "))

	before := c.State()
	res := c.Dispatch(Submit("  ping  ", 1, 2))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Packet)

	p := res.Packet
	assert.Equal(t, 0.0, p.Progress)
	assert.Equal(t, before.Processes[0].Position, p.Start)
	assert.Equal(t, before.Processes[0].Position, p.Position)
	assert.Equal(t, before.Processes[1].Position, p.Target)
	assert.Equal(t, "ping", p.Payload)
	assert.Equal(t, MechanismPipe, p.Mechanism)
	assert.Equal(t, clock.Now(), p.SentAt)
	assert.True(t, strings.HasPrefix(p.ID.String(), "pkt_"))

	assert.Equal(t, []string{`Process 1 sending "ping" to Process 2 via Named Pipe.`}, messages(res.Entries))

	after := c.State()
	assert.Len(t, after.Packets, 1)
	assert.Empty(t, after.Selection.Draft)
	assert.Equal(t, before.Processes, after.Processes)
	assert.Equal(t, before.Connection, after.Connection)
	assert.Equal(t, before.Phase, after.Phase)
}

func TestSubmitRejections(t *testing.T) {
	tests := []struct {
		name      string
		running   bool
		action    Action
		wantErr   error
		wantLevel Level
		wantMsg   string
		attention bool
	}{
		{
			name:      "idle",
			action:    Submit("ping", 1, 2),
			wantErr:   ErrNotRunning,
			wantLevel: LevelError,
			wantMsg:   "Cannot send message: Simulation not started.",
			attention: true,
		},
		{
			name:      "blank text",
			running:   true,
			action:    Submit(" \t ", 1, 2),
			wantErr:   ErrEmptyMessage,
			wantLevel: LevelWarn,
			wantMsg:   "Cannot send: Message is empty.",
		},
		{
			name:      "same process",
			running:   true,
			action:    Submit("ping", 2, 2),
			wantErr:   ErrSameProcess,
			wantLevel: LevelWarn,
			wantMsg:   "Cannot send: Source and Target processes cannot be the same.",
		},
		{
			name:      "unknown process",
			running:   true,
			action:    Submit("ping", 1, 7),
			wantErr:   ErrUnknownProcess,
			wantLevel: LevelError,
			wantMsg:   "Error: Invalid process ID selected.",
		},
		{
			name:      "too long",
			running:   true,
			action:    Submit(strings.Repeat("a", 281), 1, 2),
			wantErr:   ErrMessageTooLong,
			wantLevel: LevelWarn,
			wantMsg:   "Cannot send: Message is 281 characters, the limit is 280.",
		},
		{
			name:      "idle wins over too long",
			action:    Submit(strings.Repeat("a", 281), 1, 2),
			wantErr:   ErrNotRunning,
			wantLevel: LevelError,
			wantMsg:   "Cannot send message: Simulation not started.",
			attention: true,
		},
		{
			name:      "idle wins over empty text",
			action:    Submit("", 1, 1),
			wantErr:   ErrNotRunning,
			wantLevel: LevelError,
			wantMsg:   "Cannot send message: Simulation not started.",
			attention: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(t)
			if tt.running {
				c.Dispatch(Start())
			}
			before := c.State()

			res := c.Dispatch(tt.action)
			assert.True(t, errors.Is(res.Err, tt.wantErr))
			assert.Nil(t, res.Packet)
			assert.Equal(t, tt.attention, res.Attention)
			require.Len(t, res.Entries, 1)
			assert.Equal(t, tt.wantLevel, res.Entries[0].Level)
			assert.Equal(t, tt.wantMsg, res.Entries[0].Message)

			assert.Equal(t, before, c.State())
		})
	}
}

func TestSubmitKeepsPayloadVerbatim(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		sending  string
		received string
	}{
		{
			name:     "angle brackets",
			text:     "<hello>",
			sending:  `Process 1 sending "<hello>" to Process 2 via Named Pipe.`,
			received: `Process 2 received "<hello>" from Process 1.`,
		},
		{
			name:     "generic type",
			text:     "List<T> ok",
			sending:  `Process 1 sending "List<T> ok" to Process 2 via Named Pipe.`,
			received: `Process 2 received "List<T> ok" from Process 1.`,
		},
		{
			name:     "quotes and backslash",
			text:     `say "hi" \o/`,
			sending:  `Process 1 sending "say "hi" \o/" to Process 2 via Named Pipe.`,
			received: `Process 2 received "say "hi" \o/" from Process 1.`,
		},
		{
			name:     "at the limit",
			text:     strings.Repeat("é", 280),
			sending:  `Process 1 sending "` + strings.Repeat("é", 280) + `" to Process 2 via Named Pipe.`,
			received: `Process 2 received "` + strings.Repeat("é", 280) + `" from Process 1.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(t)
			c.Dispatch(Start())

			res := c.Dispatch(Submit(tt.text, 1, 2))
			require.NoError(t, res.Err)
			require.NotNil(t, res.Packet)
			assert.Equal(t, tt.text, res.Packet.Payload)
			assert.Equal(t, []string{tt.sending}, messages(res.Entries))

			var got []string
			for i := 0; i < StepsToArrive(c.Config().PacketSpeed); i++ {
				got = append(got, messages(c.Tick().Entries)...)
			}
			assert.Equal(t, []string{tt.received}, got)
		})
	}
}

func TestPacketDeliveredAfterCeilSteps(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Start())
	c.Dispatch(Submit("ping", 1, 2))

	steps := StepsToArrive(c.Config().PacketSpeed)
	require.Equal(t, 67, steps)

	for i := 1; i < steps; i++ {
		res := c.Tick()
		require.Empty(t, res.Delivered, "tick %d", i)
	}
	require.Len(t, c.State().Packets, 1)

	res := c.Tick()
	require.Len(t, res.Delivered, 1)
	assert.Equal(t, 1.0, res.Delivered[0].Progress)
	assert.Equal(t, res.Delivered[0].Target, res.Delivered[0].Position)
	assert.Empty(t, c.State().Packets)

	received := 0
	for _, e := range c.Entries() {
		if strings.Contains(e.Message, "received") {
			received++
		}
	}
	assert.Equal(t, 1, received)

	// further ticks log nothing
	assert.Empty(t, c.Tick().Entries)
}

func TestStepsToArriveMatchesTicks(t *testing.T) {
	for _, speed := range []float64{0.015, 0.1, 0.2, 0.25, 1.0 / 3, 0.3, 0.7, 1} {
		cfg := DefaultConfig()
		cfg.PacketSpeed = speed
		c, err := NewController(cfg)
		require.NoError(t, err)
		c.Dispatch(Start())
		c.Dispatch(Submit("x", 1, 2))

		ticks := 0
		for len(c.State().Packets) > 0 {
			c.Tick()
			ticks++
			require.LessOrEqual(t, ticks, 1000)
		}
		assert.Equal(t, StepsToArrive(speed), ticks, "speed %v", speed)
	}
}

func TestProgressMonotonic(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Start())
	c.Dispatch(Submit("a", 1, 2))

	last := 0.0
	for len(c.State().Packets) > 0 {
		c.Tick()
		for _, p := range c.State().Packets {
			require.GreaterOrEqual(t, p.Progress, last)
			require.LessOrEqual(t, p.Progress, 1.0)
			assert.Equal(t, Lerp(p.Start, p.Target, p.Progress), p.Position)
			last = p.Progress
		}
	}
}

func TestDeliveryHighlightsTarget(t *testing.T) {
	c, clock := newTestController(t)
	c.Dispatch(Start())
	c.Dispatch(Submit("ping", 2, 1))

	for len(c.State().Packets) > 0 {
		clock.Advance(16 * time.Millisecond)
		c.Tick()
	}

	st := c.State()
	target, ok := st.Process(1)
	require.True(t, ok)
	assert.True(t, target.Highlighted(clock.Now()))
	assert.Equal(t, clock.Now().Add(500*time.Millisecond), target.HighlightUntil)

	other, _ := st.Process(2)
	assert.False(t, other.Highlighted(clock.Now()))

	clock.Advance(500 * time.Millisecond)
	assert.False(t, target.Highlighted(clock.Now()))
}

func TestMixedDeliveriesKeepOrder(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Start())
	c.Dispatch(Submit("first", 1, 2))
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	c.Dispatch(Submit("second", 2, 1))

	var received []string
	for len(c.State().Packets) > 0 {
		for _, p := range c.Tick().Delivered {
			received = append(received, p.Payload)
		}
	}
	assert.Equal(t, []string{"first", "second"}, received)
}

func TestReset(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Start())
	c.Dispatch(SetDraft("pending"))
	c.Dispatch(Submit("ping", 1, 2))
	c.Tick()

	res := c.Dispatch(Reset())
	require.NoError(t, res.Err)
	assert.True(t, res.Cleared)

	st := c.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.Packets)
	assert.Empty(t, st.Selection.Draft)
	assert.True(t, st.Connection.Joins(1, 2))
	assert.Equal(t, []string{"Simulation reset.", "Initialized with Named Pipe mechanism."}, messages(c.Entries()))
}

func TestChangeMechanismWhileRunning(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Start())
	c.Dispatch(Submit("ping", 1, 2))

	res := c.Dispatch(ChangeMechanism(MechanismSharedMemory))
	require.NoError(t, res.Err)
	assert.True(t, res.Cleared)
	assert.Equal(t, PhaseIdle, res.Phase)

	st := c.State()
	assert.Empty(t, st.Packets)
	assert.Equal(t, MechanismSharedMemory, st.Mechanism)
	assert.Equal(t, MechanismSharedMemory, st.Connection.Mechanism)
	assert.Equal(t, []string{
		"IPC type changed to: Shared Memory",
		"Simulation reset.",
		"Initialized with Shared Memory mechanism.",
	}, messages(c.Entries()))
}

func TestChangeMechanismSameOrUnknown(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Start())

	res := c.Dispatch(ChangeMechanism(MechanismPipe))
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Entries)
	assert.True(t, c.Running())

	res = c.Dispatch(ChangeMechanism("socket"))
	assert.ErrorIs(t, res.Err, ErrUnknownMechanism)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, LevelError, res.Entries[0].Level)
	assert.True(t, c.Running())
}

func TestUnknownAction(t *testing.T) {
	c, _ := newTestController(t)
	res := c.Dispatch(Action{Kind: "explode"})
	assert.ErrorIs(t, res.Err, ErrUnknownAction)
}

func TestPingScenario(t *testing.T) {
	c, _ := newTestController(t)
	c.Dispatch(Toggle())
	require.NoError(t, c.Dispatch(Submit("ping", 1, 2)).Err)

	for i := 0; i < 100; i++ {
		c.Tick()
	}

	assert.Empty(t, c.State().Packets)
	msgs := messages(c.Entries())
	sending, received := -1, -1
	for i, m := range msgs {
		switch m {
		case `Process 1 sending "ping" to Process 2 via Named Pipe.`:
			sending = i
		case `Process 2 received "ping" from Process 1.`:
			received = i
		}
	}
	require.NotEqual(t, -1, sending)
	require.NotEqual(t, -1, received)
	assert.Less(t, sending, received)
}

func TestJournalSince(t *testing.T) {
	c, _ := newTestController(t)
	first := c.Entries()[0]

	c.Dispatch(Start())
	c.Dispatch(Stop())

	newer := c.EntriesSince(first.Seq)
	assert.Equal(t, []string{"Simulation started.", "Simulation stopped."}, messages(newer))
	assert.Nil(t, c.EntriesSince(newer[1].Seq))

	// sequence numbers survive a reset
	c.Dispatch(Reset())
	assert.Greater(t, c.Entries()[0].Seq, newer[1].Seq)
}

func TestEntryString(t *testing.T) {
	e := Entry{Time: time.Date(2024, 1, 1, 9, 5, 7, 0, time.UTC), Message: "Simulation started."}
	assert.Equal(t, "[09:05:07] Simulation started.", e.String())
}

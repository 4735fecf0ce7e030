package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
)

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (f *frameLog) Publish(fr Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
}

func (f *frameLog) all() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

type harness struct {
	eng    *Engine
	sched  *ManualScheduler
	frames *frameLog
	ctx    context.Context
	cancel context.CancelFunc
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(16 * time.Millisecond)
		return clock
	}

	ctrl, err := sim.NewController(sim.DefaultConfig(), sim.WithClock(now))
	require.NoError(t, err)

	h := &harness{sched: NewManualScheduler(), frames: &frameLog{}}
	h.eng = New(ctrl, append([]Option{WithScheduler(h.sched)}, opts...)...)
	h.eng.Subscribe(h.frames)

	h.ctx, h.cancel = context.WithCancel(context.Background())
	go h.eng.Run(h.ctx)
	t.Cleanup(func() {
		h.cancel()
		<-h.eng.Done()
	})
	return h
}

func (h *harness) dispatch(t *testing.T, a sim.Action) sim.Result {
	t.Helper()
	res, err := h.eng.Dispatch(h.ctx, a)
	require.NoError(t, err)
	return res
}

func (h *harness) fire(t *testing.T) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(h.ctx, time.Second)
	defer cancel()
	return h.sched.Fire(ctx, time.Now())
}

func TestEngineNeverTicksWhileIdle(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.sched.Running())
	assert.False(t, h.fire(t))

	snap, err := h.eng.Snapshot(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), snap.Seq)
	assert.Empty(t, h.frames.all())
	assert.Equal(t, sim.PhaseIdle, snap.State.Phase)
}

func TestEngineFollowsLifecycle(t *testing.T) {
	h := newHarness(t)

	h.dispatch(t, sim.Start())
	assert.True(t, h.sched.Running())

	h.dispatch(t, sim.Stop())
	assert.False(t, h.sched.Running())
	assert.False(t, h.fire(t))

	h.dispatch(t, sim.Toggle())
	assert.True(t, h.sched.Running())

	h.dispatch(t, sim.Reset())
	assert.False(t, h.sched.Running())

	h.dispatch(t, sim.Start())
	h.dispatch(t, sim.ChangeMechanism(sim.MechanismMessageQueue))
	assert.False(t, h.sched.Running())

	starts, stops := h.sched.Counts()
	assert.Equal(t, 3, starts)
	assert.Equal(t, 3, stops)
}

func TestEngineDeliversPacket(t *testing.T) {
	h := newHarness(t)

	h.dispatch(t, sim.Start())
	res := h.dispatch(t, sim.Submit("ping", 1, 2))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Packet)

	steps := sim.StepsToArrive(h.eng.Config().PacketSpeed)
	for i := 0; i < steps; i++ {
		require.True(t, h.fire(t), "tick %d", i)
	}

	snap, err := h.eng.Snapshot(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.State.Packets)

	frames := h.frames.all()
	// two action frames then one per tick
	require.Len(t, frames, 2+steps)
	last := frames[len(frames)-1]
	assert.Equal(t, ReasonTick, last.Reason)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, `Process 2 received "ping" from Process 1.`, last.Entries[0].Message)
	assert.Equal(t, "#2ecc71", last.Scene.Ops[5].Fill)

	for i := 1; i < len(frames); i++ {
		assert.Equal(t, frames[i-1].Seq+1, frames[i].Seq)
	}
}

func TestEngineRejectionFrame(t *testing.T) {
	h := newHarness(t)

	res := h.dispatch(t, sim.Submit("ping", 1, 2))
	assert.ErrorIs(t, res.Err, sim.ErrNotRunning)
	assert.True(t, res.Attention)

	frames := h.frames.all()
	require.Len(t, frames, 1)
	assert.Equal(t, ReasonAction, frames[0].Reason)
	require.Len(t, frames[0].Entries, 1)
	assert.Equal(t, sim.LevelError, frames[0].Entries[0].Level)
}

func TestEngineResetFrameIsCleared(t *testing.T) {
	h := newHarness(t)
	h.dispatch(t, sim.Reset())

	frames := h.frames.all()
	require.Len(t, frames, 1)
	assert.True(t, frames[0].Cleared)

	snap, err := h.eng.Snapshot(h.ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "Simulation reset.", snap.Entries[0].Message)

	newer, err := h.eng.EntriesSince(h.ctx, snap.Entries[0].Seq)
	require.NoError(t, err)
	assert.Len(t, newer, 1)
}

func TestEngineMirrorsSessionLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t, WithLogger(zap.New(core)))

	h.dispatch(t, sim.Start())
	h.dispatch(t, sim.Submit("  ", 1, 2))

	// Run mirrors the initialization entry before serving commands
	assert.Equal(t, 1, logs.FilterMessage("Initialized with Named Pipe mechanism.").Len())
	started := logs.FilterMessage("Simulation started.").All()
	require.Len(t, started, 1)
	assert.Equal(t, zapcore.InfoLevel, started[0].Level)

	empty := logs.FilterMessage("Cannot send: Message is empty.").All()
	require.Len(t, empty, 1)
	assert.Equal(t, zapcore.WarnLevel, empty[0].Level)
	assert.Equal(t, "session", empty[0].ContextMap()["log"])
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordSent(mech string) {
	m.Called(mech)
}

func (m *mockRecorder) RecordDelivered(mech string, latency time.Duration) {
	m.Called(mech, latency)
}

func (m *mockRecorder) RecordRejection(reason string) {
	m.Called(reason)
}

func (m *mockRecorder) RecordReset() {
	m.Called()
}

func (m *mockRecorder) RecordFrame(d time.Duration) {
	m.Called(d)
}

func (m *mockRecorder) SetInFlight(n int) {
	m.Called(n)
}

func (m *mockRecorder) SetRunning(running bool) {
	m.Called(running)
}

func TestEngineRecordsMetrics(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("SetInFlight", mock.Anything).Maybe()
	rec.On("SetRunning", mock.Anything).Maybe()
	rec.On("RecordFrame", mock.Anything).Maybe()
	rec.On("RecordRejection", "not_running").Once()
	rec.On("RecordSent", "pipe").Once()
	rec.On("RecordDelivered", "pipe", mock.AnythingOfType("time.Duration")).Once()
	rec.On("RecordReset").Once()

	h := newHarness(t, WithRecorder(rec))

	h.dispatch(t, sim.Submit("ping", 1, 2))
	h.dispatch(t, sim.Start())
	h.dispatch(t, sim.Submit("ping", 1, 2))
	for h.fire(t) {
		snap, err := h.eng.Snapshot(h.ctx)
		require.NoError(t, err)
		if len(snap.State.Packets) == 0 {
			break
		}
	}
	h.dispatch(t, sim.Reset())

	rec.AssertExpectations(t)
	rec.AssertCalled(t, "SetRunning", true)
	rec.AssertCalled(t, "SetInFlight", 1)
}

func TestDispatchAfterStop(t *testing.T) {
	h := newHarness(t)
	h.cancel()
	<-h.eng.Done()

	_, err := h.eng.Dispatch(context.Background(), sim.Start())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestDispatchHonoursContext(t *testing.T) {
	ctrl, err := sim.NewController(sim.DefaultConfig())
	require.NoError(t, err)
	eng := New(ctrl, WithScheduler(NewManualScheduler()))

	// never started, so the command cannot be delivered
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = eng.Dispatch(ctx, sim.Start())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "not_running", RejectionReason(sim.ErrNotRunning))
	assert.Equal(t, "empty_message", RejectionReason(sim.ErrEmptyMessage))
	assert.Equal(t, "message_too_long", RejectionReason(sim.ErrMessageTooLong))
	assert.Equal(t, "same_process", RejectionReason(sim.ErrSameProcess))
	assert.Equal(t, "unknown_process", RejectionReason(sim.ErrUnknownProcess))
	assert.Equal(t, "unknown_mechanism", RejectionReason(sim.ErrUnknownMechanism))
	assert.Equal(t, "invalid_action", RejectionReason(sim.ErrUnknownAction))
}

func TestTickerScheduler(t *testing.T) {
	s := NewTickerScheduler(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, s.Interval())

	select {
	case <-s.C():
		t.Fatal("stopped scheduler ticked")
	case <-time.After(20 * time.Millisecond):
	}

	s.Start()
	select {
	case <-s.C():
	case <-time.After(time.Second):
		t.Fatal("started scheduler did not tick")
	}

	s.Stop()
	select {
	case <-s.C():
		t.Fatal("tick after Stop")
	case <-time.After(20 * time.Millisecond):
	}
}

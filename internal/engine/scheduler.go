package engine

import (
	"context"
	"sync"
	"time"
)

// FrameScheduler delivers frame ticks while started. After Stop returns no
// further tick may be received from C until Start is called again.
type FrameScheduler interface {
	Start()
	Stop()
	C() <-chan time.Time
}

// TickerScheduler ticks at a fixed frame interval.
type TickerScheduler struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewTickerScheduler creates a stopped scheduler.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	t := time.NewTicker(interval)
	t.Stop()
	return &TickerScheduler{interval: interval, ticker: t}
}

// Start begins ticking
func (s *TickerScheduler) Start() {
	s.ticker.Reset(s.interval)
}

// Stop cancels the pending frame
func (s *TickerScheduler) Stop() {
	s.ticker.Stop()
}

// C is the tick channel
func (s *TickerScheduler) C() <-chan time.Time {
	return s.ticker.C
}

// Interval returns the frame interval
func (s *TickerScheduler) Interval() time.Duration {
	return s.interval
}

// ManualScheduler only ticks when Fire is called. Tests use it to step the
// animation frame by frame.
type ManualScheduler struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
	c       chan time.Time
}

// NewManualScheduler creates a stopped manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{c: make(chan time.Time)}
}

func (m *ManualScheduler) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.starts++
}

func (m *ManualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.stops++
}

func (m *ManualScheduler) C() <-chan time.Time {
	return m.c
}

// Running reports whether the scheduler is started
func (m *ManualScheduler) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Counts returns how often Start and Stop were called
func (m *ManualScheduler) Counts() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

// Fire hands one tick to the engine and reports whether it was taken. A
// stopped scheduler never ticks.
func (m *ManualScheduler) Fire(ctx context.Context, now time.Time) bool {
	if !m.Running() {
		return false
	}
	select {
	case m.c <- now:
		return true
	case <-ctx.Done():
		return false
	}
}

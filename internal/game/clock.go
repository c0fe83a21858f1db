package game

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock reads so cooldown and flash timing can be
// driven by a fake clock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Scheduler drives the frame loop. Start schedules repeated ticks until
// Stop; Stop cancels pending ticks so no callback fires afterwards.
// Restarting after Stop must not double-schedule.
type Scheduler interface {
	Start(tick func())
	Stop()
}

// TickerScheduler runs ticks from a time.Ticker goroutine at a fixed rate.
type TickerScheduler struct {
	interval time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

// NewTickerScheduler creates a scheduler firing tickRate times per second.
func NewTickerScheduler(tickRate int) *TickerScheduler {
	if tickRate <= 0 {
		tickRate = 60
	}
	return &TickerScheduler{interval: time.Second / time.Duration(tickRate)}
}

// Start begins the tick goroutine. A second Start without an intervening
// Stop is a no-op, so resume can never double-schedule.
func (s *TickerScheduler) Start(tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tick()
			case <-stop:
				return
			}
		}
	}()
}

// Stop cancels the tick goroutine. Safe to call when not running.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

// ManualClock is a test clock advanced by hand.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a manual clock at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ManualScheduler is a test scheduler: ticks fire only when Step is
// called, and only while started.
type ManualScheduler struct {
	mu      sync.Mutex
	tick    func()
	running bool
	starts  int
}

func (s *ManualScheduler) Start(tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.tick = tick
	s.starts++
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Running reports whether the scheduler has been started and not stopped.
func (s *ManualScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Starts returns how many times Start actually armed the scheduler.
func (s *ManualScheduler) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Step fires n ticks, stopping early if the scheduler is cancelled
// mid-sequence (matching a real frame source going quiet).
func (s *ManualScheduler) Step(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		tick, ok := s.tick, s.running
		s.mu.Unlock()
		if !ok {
			return
		}
		tick()
	}
}

package game

import (
	"sync"
	"testing"
	"time"
)

type fixedSettings struct {
	mu         sync.Mutex
	difficulty Difficulty
	mode       GameMode
}

func (s *fixedSettings) RunSettings() (Difficulty, GameMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.difficulty, s.mode
}

func (s *fixedSettings) set(d Difficulty, m GameMode) {
	s.mu.Lock()
	s.difficulty, s.mode = d, m
	s.mu.Unlock()
}

type recordingSink struct {
	mu      sync.Mutex
	scores  []int
	lastDif Difficulty
	lastMod GameMode
}

func (s *recordingSink) SubmitScore(score int, difficulty Difficulty, mode GameMode) {
	s.mu.Lock()
	s.scores = append(s.scores, score)
	s.lastDif, s.lastMod = difficulty, mode
	s.mu.Unlock()
}

func (s *recordingSink) submitted() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.scores...)
}

type testRun struct {
	run      *Run
	clock    *ManualClock
	sched    *ManualScheduler
	sink     *recordingSink
	settings *fixedSettings
}

func newTestRun(t *testing.T) *testRun {
	t.Helper()
	tr := &testRun{
		clock:    NewManualClock(time.Unix(1000, 0)),
		sched:    &ManualScheduler{},
		sink:     &recordingSink{},
		settings: &fixedSettings{difficulty: DifficultyMedium, mode: ModeLimited},
	}
	tr.run = NewRun(DefaultRunConfig(), RunDeps{
		Clock:     tr.clock,
		Scheduler: tr.sched,
		Settings:  tr.settings,
		Scores:    tr.sink,
	})
	return tr
}

// inject plants an obstacle directly in the field, bypassing the spawner.
func (tr *testRun) inject(o *Obstacle) {
	tr.run.mu.Lock()
	tr.run.obstacles.obstacles = append(tr.run.obstacles.obstacles, o)
	tr.run.mu.Unlock()
}

func TestRunStartsInMenu(t *testing.T) {
	tr := newTestRun(t)
	if got := tr.run.State(); got != StateMenu {
		t.Errorf("State = %q, want %q", got, StateMenu)
	}
	snap := tr.run.Snapshot()
	if snap.State != StateMenu || snap.Frame != 0 {
		t.Errorf("snapshot state=%q frame=%d, want menu/0", snap.State, snap.Frame)
	}
	if tr.sched.Running() {
		t.Error("scheduler must not run in the menu")
	}
}

func TestRunStartBeginsFreshRun(t *testing.T) {
	tr := newTestRun(t)
	tr.run.Start()

	if got := tr.run.State(); got != StatePlaying {
		t.Fatalf("State = %q, want %q", got, StatePlaying)
	}
	if !tr.sched.Running() {
		t.Fatal("scheduler must run while playing")
	}

	tr.sched.Step(10)
	snap := tr.run.Snapshot()
	if snap.Score != 10 {
		t.Errorf("Score = %d, want 10", snap.Score)
	}
	if snap.Frame != 10 {
		t.Errorf("Frame = %d, want 10", snap.Frame)
	}
	wantSpeed := BaseSpeed + 10*SpeedRamp
	if diff := snap.Speed - wantSpeed; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Speed = %v, want %v", snap.Speed, wantSpeed)
	}

	// Restart resets everything without persisting the abandoned score.
	tr.run.Start()
	snap = tr.run.Snapshot()
	if snap.Score != 0 || snap.Frame != 0 {
		t.Errorf("restart did not reset: score=%d frame=%d", snap.Score, snap.Frame)
	}
	if len(tr.sink.submitted()) != 0 {
		t.Errorf("restart must not submit a score, got %v", tr.sink.submitted())
	}
}

func TestRunSettingsCapturedAtStart(t *testing.T) {
	tr := newTestRun(t)
	tr.settings.set(DifficultyHard, ModeInfinite)
	tr.run.Start()

	tr.settings.set(DifficultyEasy, ModeLimited)
	tr.sched.Step(5)

	snap := tr.run.Snapshot()
	if snap.Difficulty != DifficultyHard || snap.Mode != ModeInfinite {
		t.Errorf("active run picked up mid-run settings: %s/%s", snap.Difficulty, snap.Mode)
	}
	if snap.Speed < BaseSpeed*1.3 {
		t.Errorf("Speed = %v, want hard multiplier applied", snap.Speed)
	}
}

func TestRunInvalidSettingsFallBack(t *testing.T) {
	tr := newTestRun(t)
	tr.settings.set("ultraviolence", "marathon")
	tr.run.Start()

	snap := tr.run.Snapshot()
	if snap.Difficulty != DifficultyMedium || snap.Mode != ModeLimited {
		t.Errorf("got %s/%s, want medium/limited fallback", snap.Difficulty, snap.Mode)
	}
}

func TestRunCollisionEndsWithinTick(t *testing.T) {
	tr := newTestRun(t)
	tr.run.Start()

	// Overlaps the player footprint even after one frame of scroll.
	tr.inject(&Obstacle{ID: 99, X: 110, Y: 200, W: 40, H: 60})
	tr.sched.Step(1)

	if got := tr.run.State(); got != StateGameOver {
		t.Fatalf("State = %q, want %q within the colliding tick", got, StateGameOver)
	}
	if tr.sched.Running() {
		t.Error("scheduler must stop at game over")
	}

	scores := tr.sink.submitted()
	if len(scores) != 1 {
		t.Fatalf("submitted %d scores, want exactly 1", len(scores))
	}
	if scores[0] != 0 {
		t.Errorf("final score = %d, want 0 (no survival credit for the death frame)", scores[0])
	}

	snap := tr.run.Snapshot()
	if !snap.CollisionFlash {
		t.Error("CollisionFlash must be set right after the hit")
	}
	if snap.State != StateGameOver {
		t.Errorf("snapshot state = %q, want gameover", snap.State)
	}

	// Ticks after the stop do nothing.
	tr.sched.Step(10)
	if got := tr.run.Snapshot().Frame; got != snap.Frame {
		t.Errorf("frame advanced after game over: %d -> %d", snap.Frame, got)
	}
}

func TestRunPauseResume(t *testing.T) {
	tr := newTestRun(t)
	tr.run.Start()
	tr.sched.Step(5)

	if !tr.run.Pause() {
		t.Fatal("Pause from playing must succeed")
	}
	if tr.run.State() != StatePaused {
		t.Fatalf("State = %q, want paused", tr.run.State())
	}
	if tr.sched.Running() {
		t.Error("scheduler must stop on pause")
	}
	if tr.run.Pause() {
		t.Error("Pause while paused must fail")
	}

	tr.sched.Step(10) // cancelled ticks must not advance anything
	if got := tr.run.Snapshot().Frame; got != 5 {
		t.Errorf("frame advanced while paused: %d", got)
	}

	if !tr.run.Resume() {
		t.Fatal("Resume from paused must succeed")
	}
	if tr.run.Resume() {
		t.Error("Resume while playing must fail")
	}
	if tr.sched.Starts() != 2 {
		t.Errorf("scheduler armed %d times, want 2 (no double-schedule)", tr.sched.Starts())
	}

	tr.sched.Step(3)
	if got := tr.run.Snapshot().Frame; got != 8 {
		t.Errorf("Frame = %d, want 8 after resume", got)
	}
}

func TestRunTogglePause(t *testing.T) {
	tr := newTestRun(t)
	tr.run.Start()

	if !tr.run.TogglePause() {
		t.Fatal("toggle from playing failed")
	}
	if tr.run.State() != StatePaused {
		t.Fatalf("State = %q, want paused", tr.run.State())
	}
	if !tr.run.TogglePause() {
		t.Fatal("toggle from paused failed")
	}
	if tr.run.State() != StatePlaying {
		t.Errorf("State = %q, want playing", tr.run.State())
	}
}

func TestRunExitToMenu(t *testing.T) {
	t.Run("from playing persists the score", func(t *testing.T) {
		tr := newTestRun(t)
		tr.run.Start()
		tr.sched.Step(42)

		tr.run.ExitToMenu()
		if tr.run.State() != StateMenu {
			t.Fatalf("State = %q, want menu", tr.run.State())
		}
		if tr.sched.Running() {
			t.Error("scheduler must stop on exit")
		}
		scores := tr.sink.submitted()
		if len(scores) != 1 || scores[0] != 42 {
			t.Errorf("submitted = %v, want [42]", scores)
		}
	})

	t.Run("from game over does not submit again", func(t *testing.T) {
		tr := newTestRun(t)
		tr.run.Start()
		tr.inject(&Obstacle{ID: 1, X: 110, Y: 200, W: 40, H: 60})
		tr.sched.Step(1)

		tr.run.ExitToMenu()
		if got := len(tr.sink.submitted()); got != 1 {
			t.Errorf("submitted %d scores, want 1 (game over already persisted)", got)
		}
	})

	t.Run("from menu is a no-op", func(t *testing.T) {
		tr := newTestRun(t)
		tr.run.ExitToMenu()
		if got := len(tr.sink.submitted()); got != 0 {
			t.Errorf("submitted %d scores, want 0", got)
		}
	})
}

func TestRunMenuScreens(t *testing.T) {
	tr := newTestRun(t)

	if !tr.run.OpenSettings() {
		t.Fatal("OpenSettings from menu must succeed")
	}
	if tr.run.State() != StateSettings {
		t.Fatalf("State = %q, want settings", tr.run.State())
	}
	if tr.run.OpenHighScores() {
		t.Error("screen change from a non-menu state must fail")
	}

	tr.run.ExitToMenu()
	if tr.run.State() != StateMenu {
		t.Fatalf("State = %q, want menu", tr.run.State())
	}
	if got := len(tr.sink.submitted()); got != 0 {
		t.Errorf("leaving a screen submitted a score: %v", tr.sink.submitted())
	}

	if !tr.run.OpenHighScores() {
		t.Error("OpenHighScores from menu must succeed")
	}
	tr.run.ExitToMenu()
	if !tr.run.OpenTutorial() {
		t.Error("OpenTutorial from menu must succeed")
	}
}

func TestRunRequestPing(t *testing.T) {
	tr := newTestRun(t)

	t.Run("rejected outside playing", func(t *testing.T) {
		if tr.run.RequestPing() {
			t.Error("ping in menu must be rejected")
		}
	})

	tr.run.Start()

	t.Run("accepted while playing", func(t *testing.T) {
		if !tr.run.RequestPing() {
			t.Fatal("first ping must be accepted")
		}
		snap := tr.run.Snapshot()
		if snap.PingsRemaining != 4 {
			t.Errorf("PingsRemaining = %d, want 4", snap.PingsRemaining)
		}
		if len(snap.Echoes) != 1 {
			t.Fatalf("echoes = %d, want 1", len(snap.Echoes))
		}
		e := snap.Echoes[0]
		if e.X != snap.Player.X || e.Y != snap.Player.Y {
			t.Errorf("echo origin (%v,%v) != player (%v,%v)", e.X, e.Y, snap.Player.X, snap.Player.Y)
		}
		if e.Radius != 0 || e.Opacity != 1 {
			t.Errorf("fresh echo radius=%v opacity=%v, want 0/1", e.Radius, e.Opacity)
		}
	})

	t.Run("rejected during cooldown", func(t *testing.T) {
		if tr.run.RequestPing() {
			t.Error("ping during cooldown must be rejected")
		}
		if got := tr.run.Snapshot().PingsRemaining; got != 4 {
			t.Errorf("rejected ping consumed budget: %d", got)
		}
	})

	t.Run("accepted after cooldown elapses", func(t *testing.T) {
		tr.clock.Advance(ProfileFor(DifficultyMedium).Interval + time.Millisecond)
		if !tr.run.RequestPing() {
			t.Error("ping after cooldown must be accepted")
		}
		if got := tr.run.Snapshot().PingsRemaining; got != 3 {
			t.Errorf("PingsRemaining = %d, want 3", got)
		}
	})

	t.Run("rejected while paused", func(t *testing.T) {
		tr.run.Pause()
		tr.clock.Advance(time.Minute)
		if tr.run.RequestPing() {
			t.Error("ping while paused must be rejected")
		}
	})
}

// TestRunMovementAppliedPerFrame ties held input to the frame loop.
func TestRunMovementAppliedPerFrame(t *testing.T) {
	tr := newTestRun(t)
	tr.run.Start()

	startY := tr.run.Snapshot().Player.Y
	tr.run.SetHeld(DirUp, true)
	tr.sched.Step(4)
	if got := tr.run.Snapshot().Player.Y; got != startY-4*PlayerStep {
		t.Errorf("Y = %v, want %v after 4 up frames", got, startY-4*PlayerStep)
	}

	tr.run.SetHeld(DirUp, false)
	tr.sched.Step(4)
	if got := tr.run.Snapshot().Player.Y; got != startY-4*PlayerStep {
		t.Errorf("Y = %v, player moved with no keys held", got)
	}
}

// TestRunRevealFlowsThroughTick drives a full emit-expand-reveal cycle
// through the frame loop and checks the snapshot output.
func TestRunRevealFlowsThroughTick(t *testing.T) {
	tr := newTestRun(t)
	tr.settings.set(DifficultyMedium, ModeInfinite)
	tr.run.Start()

	// Above the player's row so it scrolls past without colliding.
	tr.inject(&Obstacle{ID: 50, X: 130, Y: 100, W: 40, H: 60})
	if !tr.run.RequestPing() {
		t.Fatal("ping rejected")
	}

	tr.sched.Step(30) // radius 75 at speed 2.5 covers the ~70px gap
	snap := tr.run.Snapshot()
	var found *ObstacleSnapshot
	for i := range snap.Obstacles {
		if snap.Obstacles[i].ID == 50 {
			found = &snap.Obstacles[i]
		}
	}
	if found == nil {
		t.Fatal("injected obstacle missing from snapshot")
	}
	if !found.Revealed {
		t.Error("obstacle inside echo radius not revealed")
	}
	if found.LitFrac <= 0 || found.LitFrac > 1 {
		t.Errorf("LitFrac = %v, want (0,1]", found.LitFrac)
	}
}

package game

import (
	"log"
	"math/rand"
	"sync"
	"time"
)

// State is the run lifecycle state. Only Playing advances the simulation.
type State string

const (
	StateMenu       State = "menu"
	StateSettings   State = "settings"
	StatePlaying    State = "playing"
	StatePaused     State = "paused"
	StateGameOver   State = "gameover"
	StateHighScores State = "highscores"
	StateTutorial   State = "tutorial"
)

const (
	// BaseSpeed is the scroll speed at frame zero, before the difficulty
	// multiplier.
	BaseSpeed = 2.0

	// SpeedRamp is the per-frame scroll speed increment, scaled by the
	// difficulty multiplier.
	SpeedRamp = 0.001

	// FlashDuration is how long the collision flash flag stays set.
	FlashDuration = 200 * time.Millisecond
)

// ScoreSink receives the final score when a run ends. The persistence
// collaborator owns ordering and truncation of the high-score list.
type ScoreSink interface {
	SubmitScore(score int, difficulty Difficulty, mode GameMode)
}

// SettingsSource is read exactly once per run, at start. Changing settings
// mid-run must not alter the active profile.
type SettingsSource interface {
	RunSettings() (Difficulty, GameMode)
}

// FrameObserver receives per-frame timing and entity counts for metrics.
type FrameObserver func(duration time.Duration, obstacles, echoes int)

// RunConfig holds the play-field geometry and pacing of a session.
type RunConfig struct {
	FieldWidth  float64
	FieldHeight float64
	PlayerX     float64
	PlayerSize  float64
	TickRate    int
	Limits      ResourceLimits
}

// DefaultRunConfig returns the standard 800x400 corridor.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		FieldWidth:  800,
		FieldHeight: 400,
		PlayerX:     100,
		PlayerSize:  30,
		TickRate:    60,
		Limits:      DefaultLimits,
	}
}

// RunDeps are the collaborators injected into a session. Nil fields get
// working defaults (system clock, ticker scheduler, no-op sinks).
type RunDeps struct {
	Clock     Clock
	Scheduler Scheduler
	Settings  SettingsSource
	Scores    ScoreSink
	Events    *EventLog
	OnFrame   FrameObserver
}

type noopScores struct{}

func (noopScores) SubmitScore(int, Difficulty, GameMode) {}

type defaultSettings struct{}

func (defaultSettings) RunSettings() (Difficulty, GameMode) {
	return DifficultyMedium, ModeLimited
}

// Run is one play session: the lifecycle state machine plus the four
// simulation sub-models. All mutation happens under mu, once per frame
// tick; input setters only flip the held-keys set consumed at the next
// tick.
type Run struct {
	mu sync.Mutex

	cfg      RunConfig
	clock    Clock
	sched    Scheduler
	settings SettingsSource
	scores   ScoreSink
	events   *EventLog
	onFrame  FrameObserver
	pool     *SnapshotPool
	rng      *rand.Rand
	rngSeed  int64

	state      State
	difficulty Difficulty
	mode       GameMode
	profile    Profile

	player    *Player
	obstacles *ObstacleField
	echoes    *EchoField
	gate      *PingGate

	held       map[Direction]bool
	score      int
	speed      float64
	frame      uint64
	flashUntil time.Time
}

// NewRun creates a session in the Menu state.
func NewRun(cfg RunConfig, deps RunDeps) *Run {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = NewTickerScheduler(cfg.TickRate)
	}
	if deps.Settings == nil {
		deps.Settings = defaultSettings{}
	}
	if deps.Scores == nil {
		deps.Scores = noopScores{}
	}
	if deps.Events == nil {
		deps.Events = NewEventLog()
	}

	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))

	r := &Run{
		cfg:       cfg,
		clock:     deps.Clock,
		sched:     deps.Scheduler,
		settings:  deps.Settings,
		scores:    deps.Scores,
		events:    deps.Events,
		onFrame:   deps.OnFrame,
		pool:      NewSnapshotPool(cfg.Limits),
		rng:       rng,
		rngSeed:   seed,
		state:     StateMenu,
		player:    NewPlayer(cfg.PlayerX, cfg.FieldHeight, cfg.PlayerSize),
		obstacles: NewObstacleField(cfg.FieldWidth, cfg.FieldHeight, rng),
		echoes:    NewEchoField(),
		held:      make(map[Direction]bool),
	}
	r.gate = NewPingGate(ModeLimited, ProfileFor(DifficultyMedium))
	r.produceSnapshotLocked()
	return r
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns the latest published run snapshot.
func (r *Run) Snapshot() *RunSnapshot {
	return r.pool.AcquireRead()
}

// Start begins a fresh run: settings are read, all four sub-models reset
// wholesale, and the frame loop is scheduled. Valid from any state; from
// Playing or Paused it acts as a restart without persisting the
// interrupted score (GameOver already persisted, exit-to-menu persists).
func (r *Run) Start() {
	r.mu.Lock()

	r.sched.Stop()

	prev := r.state
	r.difficulty, r.mode = r.settings.RunSettings()
	if !ValidDifficulty(r.difficulty) {
		r.difficulty = DifficultyMedium
	}
	if !ValidMode(r.mode) {
		r.mode = ModeLimited
	}
	r.profile = ProfileFor(r.difficulty)

	r.player.Reset(r.cfg.FieldHeight)
	r.obstacles.Reset()
	r.echoes.Reset()
	r.gate = NewPingGate(r.mode, r.profile)
	r.held = make(map[Direction]bool)
	r.score = 0
	r.speed = BaseSpeed * r.profile.SpeedMult
	r.frame = 0
	r.flashUntil = time.Time{}
	r.rngSeed = time.Now().UnixNano()
	r.rng.Seed(r.rngSeed)

	r.state = StatePlaying
	r.events.EmitSimple(EventTypeStateChange, r.frame, StateChangePayload{From: prev, To: StatePlaying})
	r.events.EmitSimple(EventTypeRunStart, r.frame, RunStartPayload{
		Difficulty: r.difficulty,
		Mode:       r.mode,
		RNGSeed:    r.rngSeed,
	})
	r.produceSnapshotLocked()
	r.mu.Unlock()

	r.sched.Start(r.frameTick)
	log.Printf("run started: difficulty=%s mode=%s", r.difficulty, r.mode)
}

// Pause suspends the frame loop without resetting state.
func (r *Run) Pause() bool {
	r.mu.Lock()
	if r.state != StatePlaying {
		r.mu.Unlock()
		return false
	}
	r.state = StatePaused
	r.events.EmitSimple(EventTypeStateChange, r.frame, StateChangePayload{From: StatePlaying, To: StatePaused})
	r.produceSnapshotLocked()
	r.mu.Unlock()

	r.sched.Stop()
	return true
}

// Resume reschedules the frame loop after a pause. The scheduler guards
// against double-scheduling, so a racing Resume is harmless.
func (r *Run) Resume() bool {
	r.mu.Lock()
	if r.state != StatePaused {
		r.mu.Unlock()
		return false
	}
	r.state = StatePlaying
	r.events.EmitSimple(EventTypeStateChange, r.frame, StateChangePayload{From: StatePaused, To: StatePlaying})
	r.produceSnapshotLocked()
	r.mu.Unlock()

	r.sched.Start(r.frameTick)
	return true
}

// TogglePause flips between Playing and Paused.
func (r *Run) TogglePause() bool {
	if r.Pause() {
		return true
	}
	return r.Resume()
}

// ExitToMenu leaves any state for the menu. Leaving Playing or Paused
// persists the current score as a high-score entry first.
func (r *Run) ExitToMenu() {
	r.mu.Lock()
	prev := r.state
	if prev == StateMenu {
		r.mu.Unlock()
		return
	}
	var submit bool
	var score int
	if prev == StatePlaying || prev == StatePaused {
		submit, score = true, r.score
	}
	r.state = StateMenu
	r.events.EmitSimple(EventTypeStateChange, r.frame, StateChangePayload{From: prev, To: StateMenu})
	r.produceSnapshotLocked()
	difficulty, mode := r.difficulty, r.mode
	r.mu.Unlock()

	r.sched.Stop()
	if submit {
		r.scores.SubmitScore(score, difficulty, mode)
		r.events.EmitSimple(EventTypeScoreSubmitted, r.frame, GameOverPayload{Score: score, Difficulty: difficulty, Mode: mode})
	}
}

// OpenSettings, OpenHighScores and OpenTutorial are menu-only screens.
func (r *Run) OpenSettings() bool   { return r.openScreen(StateSettings) }
func (r *Run) OpenHighScores() bool { return r.openScreen(StateHighScores) }
func (r *Run) OpenTutorial() bool   { return r.openScreen(StateTutorial) }

func (r *Run) openScreen(to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateMenu {
		return false
	}
	r.events.EmitSimple(EventTypeStateChange, r.frame, StateChangePayload{From: StateMenu, To: to})
	r.state = to
	r.produceSnapshotLocked()
	return true
}

// SetHeld records a key-down/key-up for a movement direction. The held set
// is consumed at the start of the next frame tick.
func (r *Run) SetHeld(dir Direction, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pressed {
		r.held[dir] = true
	} else {
		delete(r.held, dir)
	}
}

// RequestPing asks the gate to emit an echo at the player's current
// position. Returns false while not playing, during cooldown, or with an
// exhausted limited-mode budget.
func (r *Run) RequestPing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePlaying {
		return false
	}
	now := r.clock.Now()
	if !r.gate.TryPing(now) {
		r.events.EmitSimple(EventTypePingRejected, r.frame, PingPayload{
			X: r.player.X, Y: r.player.Y, Remaining: r.gate.Remaining(),
		})
		return false
	}
	r.echoes.Emit(r.player.X, r.player.Y, r.profile)
	r.events.EmitSimple(EventTypePing, r.frame, PingPayload{
		X: r.player.X, Y: r.player.Y, Remaining: r.gate.Remaining(),
	})
	r.produceSnapshotLocked()
	return true
}

// frameTick advances the simulation one frame. Update order is
// contractual: player, obstacles, echoes, visibility, collision, pacing.
func (r *Run) frameTick() {
	start := r.clock.Now()

	r.mu.Lock()
	if r.state != StatePlaying {
		// Cancelled tick racing a state change - drop it.
		r.mu.Unlock()
		return
	}

	r.frame++
	r.player.Advance(r.held, r.cfg.FieldHeight)
	r.obstacles.Advance(r.speed, r.profile)
	r.echoes.Advance(r.profile)
	r.obstacles.RecomputeVisibility(r.echoes.Echoes(), r.profile)

	if hit := FirstCollision(r.player, r.obstacles.Obstacles()); hit != nil {
		r.endRunLocked(hit)
		obstacleCount, echoCount := r.obstacles.Len(), r.echoes.Len()
		r.mu.Unlock()

		r.sched.Stop()
		if r.onFrame != nil {
			r.onFrame(r.clock.Now().Sub(start), obstacleCount, echoCount)
		}
		return
	}

	r.score++
	r.speed += SpeedRamp * r.profile.SpeedMult
	r.gate.OnScore(r.score)

	r.produceSnapshotLocked()
	obstacleCount, echoCount := r.obstacles.Len(), r.echoes.Len()
	r.mu.Unlock()

	if r.onFrame != nil {
		r.onFrame(r.clock.Now().Sub(start), obstacleCount, echoCount)
	}
}

// endRunLocked transitions to GameOver within the colliding tick and hands
// the final score to the persistence collaborator. Caller holds mu.
func (r *Run) endRunLocked(hit *Obstacle) {
	now := r.clock.Now()
	r.flashUntil = now.Add(FlashDuration)
	r.state = StateGameOver

	r.events.EmitSimple(EventTypeCollision, r.frame, CollisionPayload{
		ObstacleID: hit.ID,
		PlayerY:    r.player.Y,
		Revealed:   hit.Revealed,
	})
	r.events.EmitSimple(EventTypeGameOver, r.frame, GameOverPayload{
		Score:      r.score,
		Difficulty: r.difficulty,
		Mode:       r.mode,
	})

	r.scores.SubmitScore(r.score, r.difficulty, r.mode)
	r.produceSnapshotLocked()
	log.Printf("run over: score=%d difficulty=%s mode=%s", r.score, r.difficulty, r.mode)
}

// produceSnapshotLocked publishes the current state to the snapshot pool.
// Caller holds mu.
func (r *Run) produceSnapshotLocked() {
	now := r.clock.Now()
	limits := r.pool.Limits()

	snap := r.pool.AcquireWrite()
	snap.Frame = r.frame
	snap.State = r.state
	snap.Difficulty = r.difficulty
	snap.Mode = r.mode
	snap.Player = PlayerSnapshot{X: r.player.X, Y: r.player.Y, Size: r.player.Size}
	snap.Score = r.score
	snap.Speed = r.speed
	snap.PingsRemaining = r.gate.Remaining()
	snap.CooldownFrac = r.gate.CooldownFrac(now)
	snap.CollisionFlash = now.Before(r.flashUntil)
	snap.FieldWidth = r.cfg.FieldWidth
	snap.FieldHeight = r.cfg.FieldHeight

	for _, o := range r.obstacles.Obstacles() {
		if len(snap.Obstacles) >= limits.MaxObstacles {
			break
		}
		litFrac := 0.0
		if r.profile.RevealMs > 0 {
			litFrac = o.RevealTimer / r.profile.RevealMs
		}
		snap.Obstacles = append(snap.Obstacles, ObstacleSnapshot{
			ID:       o.ID,
			X:        o.X,
			Y:        o.Y,
			W:        o.W,
			H:        o.H,
			Revealed: o.Revealed,
			LitFrac:  litFrac,
		})
	}
	for _, e := range r.echoes.Echoes() {
		if len(snap.Echoes) >= limits.MaxEchoes {
			break
		}
		snap.Echoes = append(snap.Echoes, EchoSnapshot{
			ID:      e.ID,
			X:       e.X,
			Y:       e.Y,
			Radius:  e.Radius,
			Opacity: e.Opacity,
		})
	}

	r.pool.PublishWrite()
}

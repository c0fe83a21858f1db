package game

import "time"

// Difficulty selects one of the four fixed tuning profiles.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyNightmare Difficulty = "nightmare"
)

// GameMode controls whether pings draw from a finite budget.
type GameMode string

const (
	ModeLimited  GameMode = "limited"
	ModeInfinite GameMode = "infinite"
)

// Profile is the immutable set of tuning constants for one difficulty.
// These values are contractual - the renderer, the client and the test
// suite all assume them. Change them only together with the tests.
type Profile struct {
	EchoBudget   int           // Max pings held in limited mode
	Interval     time.Duration // Cooldown between accepted pings
	MaxRadius    float64       // Echo expansion cap
	EchoSpeed    float64       // Radius growth per frame
	RevealMs     float64       // Obstacle reveal timer on echo touch
	OpacityDecay float64       // Echo opacity loss per frame
	SpawnProb    float64       // Obstacle spawn chance per eligible frame
	SpeedMult    float64       // Global scroll speed multiplier
}

var profiles = map[Difficulty]Profile{
	DifficultyEasy: {
		EchoBudget:   8,
		Interval:     800 * time.Millisecond,
		MaxRadius:    180,
		EchoSpeed:    2,
		RevealMs:     4000,
		OpacityDecay: 0.015,
		SpawnProb:    0.20,
		SpeedMult:    0.8,
	},
	DifficultyMedium: {
		EchoBudget:   5,
		Interval:     1200 * time.Millisecond,
		MaxRadius:    140,
		EchoSpeed:    2.5,
		RevealMs:     3000,
		OpacityDecay: 0.020,
		SpawnProb:    0.30,
		SpeedMult:    1.0,
	},
	DifficultyHard: {
		EchoBudget:   3,
		Interval:     1800 * time.Millisecond,
		MaxRadius:    100,
		EchoSpeed:    3,
		RevealMs:     2000,
		OpacityDecay: 0.025,
		SpawnProb:    0.40,
		SpeedMult:    1.3,
	},
	DifficultyNightmare: {
		EchoBudget:   2,
		Interval:     2500 * time.Millisecond,
		MaxRadius:    80,
		EchoSpeed:    4,
		RevealMs:     1500,
		OpacityDecay: 0.030,
		SpawnProb:    0.50,
		SpeedMult:    1.6,
	},
}

// ProfileFor returns the tuning profile for a difficulty.
// Unknown values fall back to medium so a corrupt settings file can
// never stall a run.
func ProfileFor(d Difficulty) Profile {
	if p, ok := profiles[d]; ok {
		return p
	}
	return profiles[DifficultyMedium]
}

// ValidDifficulty reports whether d is one of the four fixed variants.
func ValidDifficulty(d Difficulty) bool {
	_, ok := profiles[d]
	return ok
}

// ValidMode reports whether m is a known game mode.
func ValidMode(m GameMode) bool {
	return m == ModeLimited || m == ModeInfinite
}

// Difficulties lists all variants in ascending challenge order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyNightmare}
}

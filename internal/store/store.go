// Package store is the persistence collaborator: a small JSON key-value
// file holding settings and the high-score list. Corrupt or missing data
// fails closed to defaults rather than propagating into the simulation.
package store

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"echo-corridor/internal/game"
)

// MaxHighScores caps the persisted list.
const MaxHighScores = 10

// Settings is the player-facing configuration record. The simulation reads
// it once per run start.
type Settings struct {
	Difficulty   game.Difficulty `json:"difficulty"`
	GameMode     game.GameMode   `json:"gameMode"`
	SoundEnabled bool            `json:"soundEnabled"`
}

// DefaultSettings is what a fresh or corrupt store falls back to.
func DefaultSettings() Settings {
	return Settings{
		Difficulty:   game.DifficultyMedium,
		GameMode:     game.ModeLimited,
		SoundEnabled: true,
	}
}

// HighScore is one entry in the descending top-10 list.
type HighScore struct {
	Score      int             `json:"score"`
	Difficulty game.Difficulty `json:"difficulty"`
	GameMode   game.GameMode   `json:"gameMode"`
	Date       time.Time       `json:"date"`
}

// fileRecord is the on-disk shape of the store.
type fileRecord struct {
	Settings   Settings    `json:"settings"`
	HighScores []HighScore `json:"highScores"`
}

// Store owns the settings and high-score records. All methods are safe for
// concurrent use.
type Store struct {
	mu       sync.Mutex
	path     string
	settings Settings
	scores   []HighScore
	now      func() time.Time
}

// Open loads the store from path, substituting defaults for anything
// missing or unreadable. An empty path keeps the store in-memory only.
func Open(path string) *Store {
	s := &Store{
		path:     path,
		settings: DefaultSettings(),
		now:      time.Now,
	}
	if path == "" {
		return s
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: read %s failed, using defaults: %v", path, err)
		}
		return s
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("store: corrupt %s, using defaults: %v", path, err)
		return s
	}

	if game.ValidDifficulty(rec.Settings.Difficulty) && game.ValidMode(rec.Settings.GameMode) {
		s.settings = rec.Settings
	} else {
		log.Printf("store: invalid settings in %s, using defaults", path)
	}
	s.scores = normalize(rec.HighScores)
	return s
}

// normalize re-sorts descending and truncates to the cap, dropping
// whatever a hand-edited or corrupt file might contain.
func normalize(scores []HighScore) []HighScore {
	out := make([]HighScore, 0, len(scores))
	for _, hs := range scores {
		if hs.Score < 0 {
			continue
		}
		out = append(out, hs)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > MaxHighScores {
		out = out[:MaxHighScores]
	}
	return out
}

// Settings returns the current settings record.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// RunSettings implements game.SettingsSource.
func (s *Store) RunSettings() (game.Difficulty, game.GameMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Difficulty, s.settings.GameMode
}

// SaveSettings validates and persists a new settings record.
func (s *Store) SaveSettings(settings Settings) error {
	if !game.ValidDifficulty(settings.Difficulty) {
		settings.Difficulty = game.DifficultyMedium
	}
	if !game.ValidMode(settings.GameMode) {
		settings.GameMode = game.ModeLimited
	}

	s.mu.Lock()
	s.settings = settings
	err := s.persistLocked()
	s.mu.Unlock()
	return err
}

// HighScores returns a copy of the list, descending by score.
func (s *Store) HighScores() []HighScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HighScore, len(s.scores))
	copy(out, s.scores)
	return out
}

// SubmitScore implements game.ScoreSink: insert, re-sort descending,
// truncate to the top ten, persist.
func (s *Store) SubmitScore(score int, difficulty game.Difficulty, mode game.GameMode) {
	if score < 0 {
		return
	}

	s.mu.Lock()
	s.scores = append(s.scores, HighScore{
		Score:      score,
		Difficulty: difficulty,
		GameMode:   mode,
		Date:       s.now(),
	})
	s.scores = normalize(s.scores)
	if err := s.persistLocked(); err != nil {
		log.Printf("store: persist high scores failed: %v", err)
	}
	s.mu.Unlock()
}

// persistLocked writes the record atomically via a temp file rename.
// Caller holds mu.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}

	rec := fileRecord{Settings: s.settings, HighScores: s.scores}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

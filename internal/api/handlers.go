package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"echo-corridor/internal/game"
	"echo-corridor/internal/store"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers. Used by both the standalone router
// (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.Snapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	writeJSON(w, map[string]interface{}{
		"state":          snap.State,
		"frame":          snap.Frame,
		"score":          snap.Score,
		"speed":          snap.Speed,
		"obstacleCount":  len(snap.Obstacles),
		"echoCount":      len(snap.Echoes),
		"pingsRemaining": snap.PingsRemaining,
		"difficulty":     snap.Difficulty,
		"mode":           snap.Mode,
	})
}

func (h *routerHandlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.Settings())
}

func (h *routerHandlers) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req store.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !game.ValidDifficulty(req.Difficulty) {
		writeError(w, "Unknown difficulty", http.StatusBadRequest)
		return
	}
	if !game.ValidMode(req.GameMode) {
		writeError(w, "Unknown game mode", http.StatusBadRequest)
		return
	}
	// Settings apply from the next run start; the active profile is
	// untouched.
	if err := h.store.SaveSettings(req); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.store.Settings())
}

func (h *routerHandlers) handleGetHighScores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.HighScores())
}

func (h *routerHandlers) handleGetDifficulties(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]interface{}, 0, 4)
	for _, d := range game.Difficulties() {
		p := game.ProfileFor(d)
		out = append(out, map[string]interface{}{
			"difficulty": d,
			"echoBudget": p.EchoBudget,
			"intervalMs": p.Interval.Milliseconds(),
			"maxRadius":  p.MaxRadius,
			"echoSpeed":  p.EchoSpeed,
			"revealMs":   p.RevealMs,
			"speedMult":  p.SpeedMult,
		})
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleRunStart(w http.ResponseWriter, r *http.Request) {
	h.session.Start()
	RecordRunStarted()
	writeJSON(w, map[string]interface{}{"success": true, "state": h.session.State()})
}

func (h *routerHandlers) handleRunPause(w http.ResponseWriter, r *http.Request) {
	ok := h.session.Pause()
	writeJSON(w, map[string]interface{}{"success": ok, "state": h.session.State()})
}

func (h *routerHandlers) handleRunResume(w http.ResponseWriter, r *http.Request) {
	ok := h.session.Resume()
	writeJSON(w, map[string]interface{}{"success": ok, "state": h.session.State()})
}

func (h *routerHandlers) handleRunMenu(w http.ResponseWriter, r *http.Request) {
	h.session.ExitToMenu()
	writeJSON(w, map[string]interface{}{"success": true, "state": h.session.State()})
}

func (h *routerHandlers) handleRunPing(w http.ResponseWriter, r *http.Request) {
	ok := h.session.RequestPing()
	RecordPing(ok)
	writeJSON(w, map[string]bool{"success": ok})
}

func (h *routerHandlers) handleScreen(w http.ResponseWriter, r *http.Request) {
	var ok bool
	switch chi.URLParam(r, "screen") {
	case "settings":
		ok = h.session.OpenSettings()
	case "highscores":
		ok = h.session.OpenHighScores()
	case "tutorial":
		ok = h.session.OpenTutorial()
	default:
		writeError(w, "Unknown screen", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]interface{}{"success": ok, "state": h.session.State()})
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction game.Direction `json:"direction"`
		Pressed   bool           `json:"pressed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Direction != game.DirUp && req.Direction != game.DirDown {
		writeError(w, "Unknown direction", http.StatusBadRequest)
		return
	}
	h.session.SetHeld(req.Direction, req.Pressed)
	writeJSON(w, map[string]bool{"success": true})
}

// renderMu serializes frame rendering; the gg context is not safe for
// concurrent use.
var renderMu sync.Mutex

func (h *routerHandlers) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()

	renderMu.Lock()
	defer renderMu.Unlock()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.EncodePNG(snap, w); err != nil {
		// Headers are gone; nothing to do but log via the recoverer path.
		return
	}
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

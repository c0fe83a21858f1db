package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"echo-corridor/internal/game"
	"echo-corridor/internal/store"
)

// mockSession records calls and serves a canned snapshot.
type mockSession struct {
	mu       sync.Mutex
	snapshot *game.RunSnapshot
	state    game.State
	pingOK   bool
	calls    []string
	held     map[game.Direction]bool
}

func newMockSession() *mockSession {
	return &mockSession{
		snapshot: &game.RunSnapshot{
			Sequence:       1,
			State:          game.StateMenu,
			Player:         game.PlayerSnapshot{X: 100, Y: 200, Size: 30},
			PingsRemaining: 5,
			FieldWidth:     800,
			FieldHeight:    400,
		},
		state:  game.StateMenu,
		pingOK: true,
		held:   make(map[game.Direction]bool),
	}
}

func (m *mockSession) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockSession) called(call string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (m *mockSession) Snapshot() *game.RunSnapshot { return m.snapshot }
func (m *mockSession) State() game.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
func (m *mockSession) Start()           { m.record("start"); m.setState(game.StatePlaying) }
func (m *mockSession) Pause() bool      { m.record("pause"); return true }
func (m *mockSession) Resume() bool     { m.record("resume"); return true }
func (m *mockSession) TogglePause() bool {
	m.record("toggle")
	return true
}
func (m *mockSession) ExitToMenu()          { m.record("menu"); m.setState(game.StateMenu) }
func (m *mockSession) OpenSettings() bool   { m.record("settings"); return true }
func (m *mockSession) OpenHighScores() bool { m.record("highscores"); return true }
func (m *mockSession) OpenTutorial() bool   { m.record("tutorial"); return true }
func (m *mockSession) RequestPing() bool    { m.record("ping"); return m.pingOK }
func (m *mockSession) SetHeld(dir game.Direction, pressed bool) {
	m.mu.Lock()
	m.held[dir] = pressed
	m.mu.Unlock()
}

func (m *mockSession) setState(s game.State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// mockStore is an in-memory StoreInterface.
type mockStore struct {
	mu       sync.Mutex
	settings store.Settings
	scores   []store.HighScore
	saveErr  error
}

func newMockStore() *mockStore {
	return &mockStore{settings: store.DefaultSettings()}
}

func (m *mockStore) Settings() store.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *mockStore) SaveSettings(s store.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.settings = s
	return nil
}

func (m *mockStore) HighScores() []store.HighScore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.HighScore(nil), m.scores...)
}

// newTestServer spins up httptest around a pure router with rate limits
// high enough to never interfere.
func newTestServer(t *testing.T, session *mockSession, st *mockStore) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewRouter(RouterConfig{
		Session:         session,
		Store:           st,
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 10000, Burst: 10000},
		StaticDir:       t.TempDir(),
		DisableLogging:  true,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, newMockSession(), newMockStore())

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestGetState(t *testing.T) {
	session := newMockSession()
	ts := newTestServer(t, session, newMockStore())

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var snap game.RunSnapshot
	decodeBody(t, resp, &snap)
	if snap.State != game.StateMenu {
		t.Errorf("state = %q, want menu", snap.State)
	}
	if snap.Player.X != 100 || snap.FieldWidth != 800 {
		t.Errorf("snapshot fields lost in transit: %+v", snap)
	}
}

func TestRunLifecycleEndpoints(t *testing.T) {
	tests := []struct {
		path string
		call string
	}{
		{"/api/run/start", "start"},
		{"/api/run/pause", "pause"},
		{"/api/run/resume", "resume"},
		{"/api/run/menu", "menu"},
		{"/api/run/ping", "ping"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			session := newMockSession()
			ts := newTestServer(t, session, newMockStore())

			resp, err := http.Post(ts.URL+tt.path, "application/json", nil)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var body map[string]interface{}
			decodeBody(t, resp, &body)
			if body["success"] != true {
				t.Errorf("success = %v", body["success"])
			}
			if !session.called(tt.call) {
				t.Errorf("session method %q not called", tt.call)
			}
		})
	}
}

func TestScreenEndpoint(t *testing.T) {
	for _, screen := range []string{"settings", "highscores", "tutorial"} {
		t.Run(screen, func(t *testing.T) {
			session := newMockSession()
			ts := newTestServer(t, session, newMockStore())

			resp, err := http.Post(ts.URL+"/api/screen/"+screen, "application/json", nil)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if !session.called(screen) {
				t.Errorf("screen %q not dispatched", screen)
			}
		})
	}

	t.Run("unknown screen rejected", func(t *testing.T) {
		ts := newTestServer(t, newMockSession(), newMockStore())
		resp, err := http.Post(ts.URL+"/api/screen/shop", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestSettingsEndpoints(t *testing.T) {
	t.Run("get returns current settings", func(t *testing.T) {
		ts := newTestServer(t, newMockSession(), newMockStore())
		resp, err := http.Get(ts.URL + "/api/settings")
		if err != nil {
			t.Fatal(err)
		}
		var got store.Settings
		decodeBody(t, resp, &got)
		if got != store.DefaultSettings() {
			t.Errorf("settings = %+v", got)
		}
	})

	t.Run("put saves valid settings", func(t *testing.T) {
		st := newMockStore()
		ts := newTestServer(t, newMockSession(), st)

		body, _ := json.Marshal(store.Settings{
			Difficulty: game.DifficultyHard,
			GameMode:   game.ModeInfinite,
		})
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if st.Settings().Difficulty != game.DifficultyHard {
			t.Errorf("settings not saved: %+v", st.Settings())
		}
	})

	t.Run("put rejects unknown difficulty", func(t *testing.T) {
		ts := newTestServer(t, newMockSession(), newMockStore())

		body := []byte(`{"difficulty":"impossible","gameMode":"limited"}`)
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewReader(body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestHighScoresEndpoint(t *testing.T) {
	st := newMockStore()
	st.scores = []store.HighScore{
		{Score: 500, Difficulty: game.DifficultyMedium, GameMode: game.ModeLimited},
		{Score: 300, Difficulty: game.DifficultyHard, GameMode: game.ModeInfinite},
	}
	ts := newTestServer(t, newMockSession(), st)

	resp, err := http.Get(ts.URL + "/api/highscores")
	if err != nil {
		t.Fatal(err)
	}
	var got []store.HighScore
	decodeBody(t, resp, &got)
	if len(got) != 2 || got[0].Score != 500 {
		t.Errorf("highscores = %+v", got)
	}
}

func TestDifficultiesEndpoint(t *testing.T) {
	ts := newTestServer(t, newMockSession(), newMockStore())

	resp, err := http.Get(ts.URL + "/api/difficulties")
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]interface{}
	decodeBody(t, resp, &got)
	if len(got) != 4 {
		t.Fatalf("got %d difficulties, want 4", len(got))
	}
	if got[1]["difficulty"] != "medium" {
		t.Errorf("order wrong: %v", got[1]["difficulty"])
	}
	if got[1]["echoBudget"].(float64) != 5 {
		t.Errorf("medium echoBudget = %v, want 5", got[1]["echoBudget"])
	}
}

func TestInputEndpoint(t *testing.T) {
	t.Run("valid direction held", func(t *testing.T) {
		session := newMockSession()
		ts := newTestServer(t, session, newMockStore())

		body := []byte(`{"direction":"up","pressed":true}`)
		resp, err := http.Post(ts.URL+"/api/input", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		session.mu.Lock()
		held := session.held[game.DirUp]
		session.mu.Unlock()
		if !held {
			t.Error("direction not forwarded to session")
		}
	})

	t.Run("unknown direction rejected", func(t *testing.T) {
		ts := newTestServer(t, newMockSession(), newMockStore())
		body := []byte(`{"direction":"left","pressed":true}`)
		resp, err := http.Post(ts.URL+"/api/input", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestStatsEndpoint(t *testing.T) {
	session := newMockSession()
	session.snapshot.Score = 123
	ts := newTestServer(t, session, newMockStore())

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	decodeBody(t, resp, &got)
	if got["score"].(float64) != 123 {
		t.Errorf("score = %v, want 123", got["score"])
	}
	if got["pingsRemaining"].(float64) != 5 {
		t.Errorf("pingsRemaining = %v", got["pingsRemaining"])
	}
}

func TestFramePNGDisabledWithoutRenderer(t *testing.T) {
	ts := newTestServer(t, newMockSession(), newMockStore())

	resp, err := http.Get(ts.URL + "/api/frame.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Error("frame.png must 404 when no renderer is configured")
	}
}

func TestRateLimitRejects(t *testing.T) {
	ts := httptest.NewServer(NewRouter(RouterConfig{
		Session:         newMockSession(),
		Store:           newMockStore(),
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 1, Burst: 2},
		StaticDir:       t.TempDir(),
		DisableLogging:  true,
	}))
	defer ts.Close()

	var rejected bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(fmt.Sprintf("%s/api/state", ts.URL))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			rejected = true
			break
		}
	}
	if !rejected {
		t.Error("burst of 10 requests never hit the rate limit")
	}
}

package api

import (
	"io"
	"net/http"
	"time"

	"echo-corridor/internal/game"
	"echo-corridor/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SessionInterface defines the run-session methods used by the API. This
// interface enables mocking for tests without spinning up the frame loop.
// Keep it minimal - only what the handlers and the WebSocket hub call.
type SessionInterface interface {
	// Snapshot returns the latest lock-free immutable run snapshot
	Snapshot() *game.RunSnapshot
	// State returns the current lifecycle state
	State() game.State
	// Start begins or restarts a run
	Start()
	// Pause/Resume/TogglePause control the frame loop without reset
	Pause() bool
	Resume() bool
	TogglePause() bool
	// ExitToMenu leaves the run, persisting the score first
	ExitToMenu()
	// Screen transitions, valid from the menu only
	OpenSettings() bool
	OpenHighScores() bool
	OpenTutorial() bool
	// RequestPing attempts to emit an echo
	RequestPing() bool
	// SetHeld records a key-down/key-up for a movement direction
	SetHeld(dir game.Direction, pressed bool)
}

// StoreInterface defines the persistence methods used by the API.
type StoreInterface interface {
	Settings() store.Settings
	SaveSettings(store.Settings) error
	HighScores() []store.HighScore
}

// FrameEncoder renders the latest snapshot to PNG for the spectator view.
type FrameEncoder interface {
	EncodePNG(snap *game.RunSnapshot, w io.Writer) error
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability:
//
//	cfg := api.RouterConfig{
//	    Session: mockSession,
//	    Store:   mockStore,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	}
//	ts := httptest.NewServer(api.NewRouter(cfg))
type RouterConfig struct {
	// Session is the run session (required)
	Session SessionInterface

	// Store is the settings/high-score store (required)
	Store StoreInterface

	// Renderer serves /api/frame.png; nil disables the endpoint.
	Renderer FrameEncoder

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, one is created from RateLimitConfig (or defaults).
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins beyond
	// localhost.
	CORSOrigins []string

	// StaticDir serves the browser client. Empty defaults to "./web".
	StaticDir string

	// DisableLogging disables the request logger middleware (benchmarks).
	DisableLogging bool
}

// requestMetrics records latency and status per matched route pattern, so
// metric cardinality stays bounded no matter what paths clients probe.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		RecordRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}

// routerHandlers holds handler dependencies.
type routerHandlers struct {
	session  SessionInterface
	store    StoreInterface
	renderer FrameEncoder
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is PURE - no goroutines, no listeners, no background
// workers - so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters.
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting before CORS to reject early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		session:  cfg.Session,
		store:    cfg.Store,
		renderer: cfg.Renderer,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"status": "ok"})
		})

		// Run state
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)

		// Settings and high scores
		r.Get("/settings", h.handleGetSettings)
		r.Put("/settings", h.handlePutSettings)
		r.Get("/highscores", h.handleGetHighScores)
		r.Get("/difficulties", h.handleGetDifficulties)

		// Run lifecycle
		r.Post("/run/start", h.handleRunStart)
		r.Post("/run/pause", h.handleRunPause)
		r.Post("/run/resume", h.handleRunResume)
		r.Post("/run/menu", h.handleRunMenu)
		r.Post("/run/ping", h.handleRunPing)

		// Screen transitions (menu-only)
		r.Post("/screen/{screen}", h.handleScreen)

		// Input fallback for clients without a WebSocket
		r.Post("/input", h.handleInput)

		// Spectator frame
		if cfg.Renderer != nil {
			r.Get("/frame.png", h.handleFramePNG)
		}
	})

	// Serve the browser client
	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = "./web"
	}
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}

package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
//
// Background workers do NOT start until Start() is called, so the server
// can be constructed in tests without goroutines or listeners. For plain
// HTTP endpoint tests, use NewRouter directly.
type Server struct {
	session     SessionInterface
	store       StoreInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates an API server with production configuration.
func NewServer(cfg RouterConfig) *Server {
	s := &Server{
		session: cfg.Session,
		store:   cfg.Store,
		wsHub:   NewWebSocketHub(cfg.Session, cfg.CORSOrigins),
	}

	if cfg.RateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		cfg.RateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	s.rateLimiter = cfg.RateLimiter

	s.router = NewRouter(cfg)

	// WebSocket endpoint sits outside the rate-limited API tree; it has
	// its own connection caps.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Hub returns the WebSocket hub (for wiring or tests).
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Start launches the hub workers and blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop()

	log.Printf("api server listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Shutdown stops background workers.
func (s *Server) Shutdown() {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
}

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"echo-corridor/internal/game"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the total WebSocket connection cap.
	MaxWSConnectionsTotal = 100

	// MaxWSConnectionsPerIP is the per-IP WebSocket connection cap.
	MaxWSConnectionsPerIP = 4

	// BroadcastInterval is how often run snapshots go out to clients.
	BroadcastInterval = 33 * time.Millisecond // ~30 updates per second
)

// wsClient tracks a WebSocket connection with its source IP.
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// wsMessage is the envelope for both directions.
type wsMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// inputPayload is the client's key event.
type inputPayload struct {
	Direction game.Direction `json:"direction"`
	Pressed   bool           `json:"pressed"`
}

// WebSocketHub manages all WebSocket connections: snapshot broadcast out,
// input events in. It is the input collaborator's transport.
type WebSocketHub struct {
	session SessionInterface

	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	wsLimiter *WebSocketRateLimiter

	upgrader websocket.Upgrader

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWebSocketHub creates a hub with connection limiting.
func NewWebSocketHub(session SessionInterface, extraOrigins []string) *WebSocketHub {
	h := &WebSocketHub{
		session:    session,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stopChan:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, extraOrigins) {
				return true
			}
			log.Printf("websocket rejected from origin %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run processes register/unregister/broadcast until Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.RLock()
			var dead []*websocket.Conn
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					dead = append(dead, conn)
				}
			}
			h.mu.RUnlock()

			for _, conn := range dead {
				h.mu.Lock()
				if client, ok := h.clients[conn]; ok {
					h.wsLimiter.Release(client.ip)
					delete(h.clients, conn)
					conn.Close()
				}
				h.mu.Unlock()
			}
			IncrementWSMessages()
		}
	}
}

// Stop shuts the hub loops down.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Broadcast sends an event to all connected clients, dropping under
// backpressure.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	msg, err := json.Marshal(wsMessage{Event: event, Data: payload})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes run snapshots to clients periodically. Only
// changed sequences are sent, so a paused run costs nothing.
func (h *WebSocketHub) StartBroadcastLoop() {
	go func() {
		ticker := time.NewTicker(BroadcastInterval)
		defer ticker.Stop()

		var lastSeq uint64
		var lastState game.State
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				snap := h.session.Snapshot()
				if snap.State == game.StateGameOver && lastState != game.StateGameOver {
					RecordCollision()
				}
				lastState = snap.State

				if h.ClientCount() == 0 || snap.Sequence == lastSeq {
					continue
				}
				lastSeq = snap.Sequence
				h.Broadcast("run:state", snap)
			}
		}
	}()
}

// HandleWebSocket upgrades a connection and consumes input events from it.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()

	if total >= MaxWSConnectionsTotal {
		log.Printf("websocket rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		log.Printf("websocket rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	h.register <- &wsClient{conn: conn, ip: ip}

	go func() {
		defer func() {
			h.unregister <- conn
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleMessage(message)
		}
	}()
}

// handleMessage dispatches one input event from a client.
func (h *WebSocketHub) handleMessage(raw []byte) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	switch msg.Event {
	case "input":
		var in inputPayload
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			return
		}
		if in.Direction != game.DirUp && in.Direction != game.DirDown {
			return
		}
		h.session.SetHeld(in.Direction, in.Pressed)
	case "ping":
		RecordPing(h.session.RequestPing())
	case "pause":
		h.session.TogglePause()
	case "start":
		h.session.Start()
		RecordRunStarted()
	case "menu":
		h.session.ExitToMenu()
	}
}

package game

import (
	"encoding/json"
	"time"
)

// EventType classifies run events in the audit log.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRunStart
	EventTypeStateChange
	EventTypePing
	EventTypePingRejected
	EventTypeCollision
	EventTypeGameOver
	EventTypeScoreSubmitted
)

// EventVersion guards schema compatibility when re-reading old logs.
const EventVersion uint8 = 1

// Event is one record in the append-only run log.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic, assigned by the log
	Frame     uint64    `json:"frame"`
	Payload   []byte    `json:"payload"` // JSON-encoded typed payload
}

// String returns the human-readable event type.
func (t EventType) String() string {
	switch t {
	case EventTypeRunStart:
		return "run_start"
	case EventTypeStateChange:
		return "state_change"
	case EventTypePing:
		return "ping"
	case EventTypePingRejected:
		return "ping_rejected"
	case EventTypeCollision:
		return "collision"
	case EventTypeGameOver:
		return "game_over"
	case EventTypeScoreSubmitted:
		return "score_submitted"
	default:
		return "unknown"
	}
}

// NewEvent builds an event with the payload marshalled to JSON. A payload
// that fails to marshal is recorded as null rather than dropping the event.
func NewEvent(eventType EventType, frame uint64, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Frame:     frame,
		Payload:   data,
	}
}

// RunStartPayload records the configuration a run began with.
type RunStartPayload struct {
	Difficulty Difficulty `json:"difficulty"`
	Mode       GameMode   `json:"mode"`
	RNGSeed    int64      `json:"rngSeed"`
}

// StateChangePayload records a lifecycle transition.
type StateChangePayload struct {
	From State `json:"from"`
	To   State `json:"to"`
}

// PingPayload records an accepted ping.
type PingPayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Remaining int     `json:"remaining"`
}

// CollisionPayload records the fatal overlap.
type CollisionPayload struct {
	ObstacleID int64   `json:"obstacleId"`
	PlayerY    float64 `json:"playerY"`
	Revealed   bool    `json:"revealed"`
}

// GameOverPayload records the final score.
type GameOverPayload struct {
	Score      int        `json:"score"`
	Difficulty Difficulty `json:"difficulty"`
	Mode       GameMode   `json:"mode"`
}

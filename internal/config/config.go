// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for field geometry and server
// settings; all other packages should reference these values.
package config

import (
	"os"
	"strconv"

	"echo-corridor/internal/game"
)

// =============================================================================
// PLAY FIELD CONFIGURATION
// =============================================================================

// FieldConfig holds the play-field geometry and tick rate. These values
// are shared between the simulation, the frame renderer and the client.
type FieldConfig struct {
	Width      int // Field width in units/pixels
	Height     int // Field height in units/pixels
	PlayerX    int // Fixed player x position
	PlayerSize int // Square player footprint
	TickRate   int // Simulation frames per second
}

// DefaultField returns the standard corridor geometry.
func DefaultField() FieldConfig {
	return FieldConfig{
		Width:      800,
		Height:     400,
		PlayerX:    100,
		PlayerSize: 30,
		TickRate:   60,
	}
}

// FieldFromEnv returns field configuration with environment overrides.
func FieldFromEnv() FieldConfig {
	cfg := DefaultField()

	if w := getEnvInt("FIELD_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("FIELD_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	return cfg
}

// RunConfig converts the field config into the simulation's config struct.
func (c FieldConfig) RunConfig() game.RunConfig {
	return game.RunConfig{
		FieldWidth:  float64(c.Width),
		FieldHeight: float64(c.Height),
		PlayerX:     float64(c.PlayerX),
		PlayerSize:  float64(c.PlayerSize),
		TickRate:    c.TickRate,
		Limits:      game.DefaultLimits,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	StaticDir string // Directory serving the browser client
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		StaticDir: "./web",
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}
	return cfg
}

// =============================================================================
// PERSISTENCE CONFIGURATION
// =============================================================================

// StoreConfig holds persistence paths.
type StoreConfig struct {
	Path         string // Settings + high scores JSON file
	EventLogPath string // Append-only JSONL run event log
}

// DefaultStore returns the default persistence paths.
func DefaultStore() StoreConfig {
	return StoreConfig{
		Path:         "echo-corridor.json",
		EventLogPath: "events.jsonl",
	}
}

// StoreFromEnv returns persistence configuration with environment
// overrides.
func StoreFromEnv() StoreConfig {
	cfg := DefaultStore()

	if p := os.Getenv("STORE_PATH"); p != "" {
		cfg.Path = p
	}
	if p := os.Getenv("EVENT_LOG_PATH"); p != "" {
		cfg.EventLogPath = p
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Field  FieldConfig
	Server ServerConfig
	Store  StoreConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Field:  FieldFromEnv(),
		Server: ServerFromEnv(),
		Store:  StoreFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

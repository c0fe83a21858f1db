package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"echo-corridor/internal/api"
	"echo-corridor/internal/config"
	"echo-corridor/internal/game"
	"echo-corridor/internal/render"
	"echo-corridor/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" ECHO CORRIDOR - GAME SERVER")
	log.Println("================================")

	// Centralized configuration (single source of truth)
	appConfig := config.Load()
	fieldCfg := appConfig.Field
	serverCfg := appConfig.Server
	storeCfg := appConfig.Store

	log.Printf("field: %dx%d @ %d TPS", fieldCfg.Width, fieldCfg.Height, fieldCfg.TickRate)

	// Persistence collaborator: settings + high scores, fail-closed.
	kv := store.Open(storeCfg.Path)
	settings := kv.Settings()
	log.Printf("settings: difficulty=%s mode=%s sound=%v",
		settings.Difficulty, settings.GameMode, settings.SoundEnabled)

	// Run event log
	eventLog := game.NewEventLog()
	if err := eventLog.Start(storeCfg.EventLogPath); err != nil {
		log.Printf("event log disabled: %v", err)
	} else {
		log.Printf("event log: %s", storeCfg.EventLogPath)
	}

	// Run session: the simulation reads settings from the store at each
	// run start; the store receives final scores.
	session := game.NewRun(fieldCfg.RunConfig(), game.RunDeps{
		Settings: kv,
		Scores:   kv,
		Events:   eventLog,
		OnFrame:  api.RecordFrame,
	})

	// Debug server (pprof + prometheus), localhost only
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	// Spectator frame renderer
	renderer := render.NewFrameRenderer(fieldCfg.Width, fieldCfg.Height)

	server := api.NewServer(api.RouterConfig{
		Session:   session,
		Store:     kv,
		Renderer:  renderer,
		StaticDir: serverCfg.StaticDir,
	})

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("play at http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	session.ExitToMenu()
	server.Shutdown()
	eventLog.Stop()
	log.Println("goodbye")
}

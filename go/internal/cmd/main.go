package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainball/scoreboard/go/internal/control"
	"github.com/chainball/scoreboard/go/internal/persist"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "path to the YAML configuration")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	hw, err := setupHardware(ctx, cfg.Hardware, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open hardware")
	}
	defer hw.Close()

	store, closeStore, err := setupStore(ctx, cfg.Persist)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up persistence")
	}
	defer closeStore()

	series, err := store.LoadSeries(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not load game series, starting at 0")
		series = 0
	}

	hub := control.NewHub(control.DefaultHubConfig())
	publishers, closePublishers, err := setupPublishers(ctx, cfg.Persist.NATS, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up event publishers")
	}
	defer closePublishers()

	// The worker outlives ctx so queued records are flushed on shutdown.
	worker := persist.NewWorker(store, publishers, clock, persist.DefaultWorkerConfig())
	if err := worker.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to start persistence worker")
	}

	journal := persist.NewJournal(clock, series, worker)
	engine, err := setupEngine(cfg, hw, journal, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up game engine")
	}

	dispatcher := control.NewDispatcher(64)
	server := setupServer(cfg.Control, engine, dispatcher, hw, hub)
	server.Start()

	log.Info().Int("series", series).Msg("scoreboard running")
	runLoop(ctx, clock, dispatcher, engine)

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("control server shutdown failed")
	}
	hub.Close()
	engine.Shutdown()
	if err := worker.Stop(); err != nil {
		log.Error().Err(err).Msg("persistence worker stop failed")
	}
}

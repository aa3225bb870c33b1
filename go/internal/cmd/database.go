package main

import (
	"context"
	"fmt"

	"github.com/chainball/scoreboard/go/internal/config"
	"github.com/chainball/scoreboard/go/internal/persist"
	"github.com/rs/zerolog/log"
)

// setupStore opens the configured game record store. The returned close
// func is safe to call once the persistence worker has stopped.
func setupStore(ctx context.Context, cfg config.PersistConfig) (persist.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := persist.NewPostgresStore(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("connected to database")
		return store, store.Close, nil
	default:
		store, err := persist.NewFileStore(cfg.Directory)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		log.Info().Str("directory", cfg.Directory).Msg("using file store")
		return store, func() {}, nil
	}
}

// setupPublishers always includes the websocket hub. JetStream is added
// when enabled, otherwise events are logged.
func setupPublishers(ctx context.Context, cfg config.NATSConfig, hub persist.Publisher) ([]persist.Publisher, func(), error) {
	pubs := []persist.Publisher{hub}
	if !cfg.Enabled {
		return append(pubs, persist.LogPublisher{}), func() {}, nil
	}

	jsCfg := persist.DefaultJetStreamConfig()
	jsCfg.URL = cfg.URL
	jsCfg.StreamName = cfg.Stream
	jsCfg.SubjectPrefix = cfg.SubjectPrefix

	js, err := persist.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up event stream: %w", err)
	}
	log.Info().Str("url", cfg.URL).Str("stream", cfg.Stream).Msg("publishing events to JetStream")
	return append(pubs, js), func() { _ = js.Close() }, nil
}

package main

import (
	"github.com/chainball/scoreboard/go/internal/config"
	"github.com/chainball/scoreboard/go/internal/control"
	"github.com/rs/zerolog/log"
)

func setupServer(cfg config.ControlConfig, engine control.Engine, dispatcher *control.Dispatcher, hw *Hardware, hub *control.Hub) *control.Server {
	handler := control.NewHandler(engine, dispatcher, hw.Registry)
	if hw.Virtual != nil {
		log.Info().Msg("virtual remote presses enabled")
		handler.EnableVirtualRemotes(hw.Virtual)
	}
	return control.NewServer(control.ServerConfig{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, handler, hub)
}

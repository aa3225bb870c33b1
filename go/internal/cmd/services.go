package main

import (
	"github.com/chainball/scoreboard/go/internal/config"
	"github.com/chainball/scoreboard/go/internal/game"
	"github.com/chainball/scoreboard/go/internal/persist"
	"github.com/jonboulle/clockwork"
)

func setupEngine(cfg *config.Config, hw *Hardware, journal *persist.Journal, clock clockwork.Clock) (*game.Engine, error) {
	gameCfg, err := cfg.GameConfig()
	if err != nil {
		return nil, err
	}

	// Hardware -> Engine; the journal records what the engine does
	engine := game.NewEngine(gameCfg, game.Deps{
		Clock:    clock,
		Remotes:  hw.Remotes,
		Decoder:  hw.Decoder,
		Display:  hw.Display,
		Matrix:   hw.Matrix,
		Recorder: journal,
		SFX:      game.LogSFXPlayer{},
	})
	engine.PostInit()
	return engine, nil
}

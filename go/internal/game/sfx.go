package game

import "github.com/rs/zerolog/log"

// SFXPlayer plays named sound effects. Handle is called once per tick.
type SFXPlayer interface {
	Play(name string) error
	Handle()
}

// LogSFXPlayer stands in for an audio backend and only logs what would
// have played.
type LogSFXPlayer struct{}

func (LogSFXPlayer) Play(name string) error {
	log.Info().Str("component", "sfx").Str("fx", name).Msg("playing sound effect")
	return nil
}

func (LogSFXPlayer) Handle() {}

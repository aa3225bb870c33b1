package game

import (
	"errors"
	"fmt"
)

// Every engine error wraps one of these two roots so callers can tell bad
// input apart from a request that does not fit the current game state.
var (
	ErrValidation    = errors.New("validation error")
	ErrStateConflict = errors.New("state conflict")
)

var (
	ErrTooManyPlayers        = fmt.Errorf("%w: limited to 4 players", ErrValidation)
	ErrNotEnoughPlayers      = fmt.Errorf("%w: game needs at least 2 players", ErrValidation)
	ErrInvalidPlayer         = fmt.Errorf("%w: invalid player", ErrValidation)
	ErrInvalidPlayerText     = fmt.Errorf("%w: invalid player text", ErrValidation)
	ErrInvalidScore          = fmt.Errorf("%w: score out of range", ErrValidation)
	ErrUnknownScoringEvent   = fmt.Errorf("%w: unknown scoring event", ErrValidation)
	ErrGameRunning           = fmt.Errorf("%w: game is running", ErrStateConflict)
	ErrGameAlreadyStarted    = fmt.Errorf("%w: game already started", ErrStateConflict)
	ErrGameNotStarted        = fmt.Errorf("%w: game is not running", ErrStateConflict)
	ErrGameAlreadyPaused     = fmt.Errorf("%w: game is already paused", ErrStateConflict)
	ErrGameNotPaused         = fmt.Errorf("%w: game is not paused", ErrStateConflict)
	ErrPlayerNotRegistered   = fmt.Errorf("%w: player not registered", ErrStateConflict)
	ErrPlayerRemoteNotPaired = fmt.Errorf("%w: player has no remote paired", ErrStateConflict)
	ErrPlayerAlreadyPaired   = fmt.Errorf("%w: player already paired", ErrStateConflict)
	ErrPlayerNotPaired       = fmt.Errorf("%w: player not paired to a remote", ErrStateConflict)
	ErrMasterAlreadyPaired   = fmt.Errorf("%w: master remote already paired", ErrStateConflict)
	ErrPairingInProgress     = fmt.Errorf("%w: pairing already in progress", ErrStateConflict)
	ErrRemotesDisabled       = fmt.Errorf("%w: remotes are disabled", ErrStateConflict)
)

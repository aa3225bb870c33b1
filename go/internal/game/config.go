package game

import "time"

type TurnAction string

const (
	IncreaseScore TurnAction = "INCR"
	DecreaseScore TurnAction = "DECR"
	PassTurn      TurnAction = "PASS"
)

type MasterAction string

const (
	PauseUnpause MasterAction = "PAUSE"
)

// RemoteMapping translates remote button numbers into game actions.
// PlayerOverrides replaces the player table for individual slots.
type RemoteMapping struct {
	Player          map[uint8]TurnAction
	Master          map[uint8]MasterAction
	PlayerOverrides map[int]map[uint8]TurnAction
}

func DefaultRemoteMapping() RemoteMapping {
	return RemoteMapping{
		Player: map[uint8]TurnAction{
			0: IncreaseScore,
			1: DecreaseScore,
			2: PassTurn,
		},
		Master: map[uint8]MasterAction{
			0: PauseUnpause,
		},
	}
}

func (m RemoteMapping) PlayerAction(pid int, button uint8) (TurnAction, bool) {
	if table, ok := m.PlayerOverrides[pid]; ok {
		action, ok := table[button]
		return action, ok
	}
	action, ok := m.Player[button]
	return action, ok
}

func (m RemoteMapping) MasterCommand(button uint8) (MasterAction, bool) {
	action, ok := m.Master[button]
	return action, ok
}

type SFXEvent string

const (
	SFXGameEnd SFXEvent = "gameEnd"
	SFXCowout  SFXEvent = "cowOut"
)

type Config struct {
	GameDuration          time.Duration
	PairTimeout           time.Duration
	ServeTimeout          time.Duration
	ScoreAnnounceInterval time.Duration
	RemotesEnabled        bool
	Mapping               RemoteMapping
	SFX                   map[SFXEvent]string
}

func DefaultConfig() Config {
	return Config{
		GameDuration:          20 * time.Minute,
		PairTimeout:           30 * time.Second,
		ServeTimeout:          3 * time.Second,
		ScoreAnnounceInterval: 5 * time.Second,
		RemotesEnabled:        true,
		Mapping:               DefaultRemoteMapping(),
		SFX:                   map[SFXEvent]string{},
	}
}

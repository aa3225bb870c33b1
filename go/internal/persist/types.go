package persist

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventScoreChange  EventType = "SCORE_CHANGE"
	EventScoreForced  EventType = "SCORE_FORCED"
	EventCowout       EventType = "COWOUT"
	EventGameStart    EventType = "GAME_START"
	EventGameEnd      EventType = "GAME_END"
	EventGamePause    EventType = "GAME_PAUSE"
	EventGameUnpause  EventType = "GAME_UNPAUSE"
	EventForceServe   EventType = "FORCE_SERVE"
	EventDeadball     EventType = "DEADBALL"
	EventMudskipper   EventType = "MUDSKIPPER"
	EventBallHit      EventType = "BALL_HIT"
	EventSailormoon   EventType = "SAILORMOON"
	EventChainball    EventType = "CHAINBALL"
	EventJailbreak    EventType = "JAILBREAK"
	EventFault        EventType = "FAULT"
	EventDoubleFault  EventType = "DOUBLEFAULT"
	EventSlowpoke     EventType = "SLOWPOKE"
	EventServeAdvance EventType = "SERVE_ADVANCE"
)

var (
	ErrNoRecord      = errors.New("no game record open")
	ErrUnknownPlayer = errors.New("player not in game record")
	ErrGameFinished  = errors.New("game has finished, scores cannot change")
)

// Event is one entry of a game's event log. Desc is never mutated once
// the event is logged.
type Event struct {
	ID     uuid.UUID      `json:"evt_id"`
	GameID string         `json:"-"`
	Type   EventType      `json:"evt_type"`
	Desc   map[string]any `json:"evt_desc"`
	Time   time.Time      `json:"evt_time"`
}

type PlayerData struct {
	DisplayName string  `json:"display_name"`
	FullName    string  `json:"full_name"`
	Score       int     `json:"score"`
	Username    *string `json:"username"`
}

type State int

const (
	StateRunning State = iota
	StateFinished
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateFinished:
		return "FINISHED"
	case StatePaused:
		return "PAUSED"
	default:
		return "RUNNING"
	}
}

type GameData struct {
	InternalID int     `json:"internal_id"`
	UserID     *string `json:"user_id"`
}

// Document is the stored form of a game record.
type Document struct {
	ID         string                `json:"-"`
	StartTime  time.Time             `json:"start_time"`
	GameState  string                `json:"game_state"`
	Events     []Event               `json:"events"`
	PlayerData map[string]PlayerData `json:"player_data"`
	GameData   GameData              `json:"game_data"`
}

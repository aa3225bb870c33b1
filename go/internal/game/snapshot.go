package game

import (
	"time"

	"github.com/chainball/scoreboard/go/internal/remote"
)

type PlayerStatus struct {
	ID         int    `json:"id"`
	PanelText  string `json:"panel_text"`
	WebText    string `json:"web_text"`
	Score      int    `json:"score"`
	ScoreDiff  int    `json:"score_diff"`
	IsTurn     bool   `json:"is_turn"`
	ServeState string `json:"serve_state"`
	Cowout     bool   `json:"cowout"`
	RemoteID   string `json:"remote_id,omitempty"`
}

// Status is a read-only view of the engine for the control surface.
type Status struct {
	Ongoing      bool           `json:"ongoing"`
	Paused       bool           `json:"paused"`
	ActivePlayer int            `json:"active_player"`
	GameID       string         `json:"game_id,omitempty"`
	Remaining    *int           `json:"remaining_time"`
	Running      *int           `json:"running_time"`
	CanStart     bool           `json:"can_start"`
	MasterRemote string         `json:"master_remote,omitempty"`
	Pairing      PairStatus     `json:"pairing"`
	Players      []PlayerStatus `json:"players"`
}

func (e *Engine) Snapshot() Status {
	st := Status{
		Ongoing:      e.ongoing,
		Paused:       e.paused,
		ActivePlayer: e.ActivePlayer(),
		GameID:       e.gameID,
		CanStart:     e.GameCanStart(),
		Pairing:      e.PairStatus(),
		Players:      []PlayerStatus{},
	}
	if remaining, ok := e.RemainingTime(); ok {
		st.Remaining = secondsPtr(remaining)
	}
	if running, ok := e.RunningTime(); ok {
		st.Running = secondsPtr(running)
	}
	if e.masterRemote != 0 {
		st.MasterRemote = remote.RemoteKey(e.masterRemote)
	}

	for _, s := range e.slots {
		if !s.Registered {
			continue
		}
		p := PlayerStatus{
			ID:         s.PID,
			PanelText:  s.PanelText(),
			WebText:    s.WebText,
			Score:      s.Score(),
			ScoreDiff:  s.ScoreDiff(),
			IsTurn:     s.IsTurn(),
			ServeState: s.ServeState().String(),
			Cowout:     s.IsCowout(),
		}
		if s.HasRemote() {
			p.RemoteID = remote.RemoteKey(s.RemoteID)
		}
		st.Players = append(st.Players, p)
	}
	return st
}

func secondsPtr(d time.Duration) *int {
	s := int(d / time.Second)
	return &s
}

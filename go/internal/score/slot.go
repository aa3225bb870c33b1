package score

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ServeState int

const (
	ServeIdle ServeState = iota
	ServeServing
	ServeScored
	ServeFinished
)

func (s ServeState) String() string {
	switch s {
	case ServeServing:
		return "SERVING"
	case ServeScored:
		return "SCORED"
	case ServeFinished:
		return "FINISHED"
	default:
		return "IDLE"
	}
}

// MaxTurnDelta bounds how far a score may move during one turn.
const MaxTurnDelta = 2

// Slot is one player position on the console. Setters apply their display
// side effects immediately. A zero RemoteID means no remote is bound, which
// is safe because the decoder never yields remote id zero.
type Slot struct {
	PID        int
	Registered bool
	RemoteID   uint32
	WebText    string

	score      int
	diff       int
	isTurn     bool
	serve      ServeState
	scoreStart time.Time
	cowout     bool
	panelText  string

	serveTimeout time.Duration
	clock        clockwork.Clock
	display      DisplaySink
	autoAdvance  func()
}

func NewSlot(pid int, serveTimeout time.Duration, clock clockwork.Clock, display DisplaySink, autoAdvance func()) *Slot {
	return &Slot{
		PID:          pid,
		serveTimeout: serveTimeout,
		clock:        clock,
		display:      display,
		autoAdvance:  autoAdvance,
	}
}

func (s *Slot) Score() int             { return s.score }
func (s *Slot) ScoreDiff() int         { return s.diff }
func (s *Slot) IsTurn() bool           { return s.isTurn }
func (s *Slot) ServeState() ServeState { return s.serve }
func (s *Slot) IsCowout() bool         { return s.cowout }
func (s *Slot) PanelText() string      { return s.panelText }
func (s *Slot) HasRemote() bool        { return s.RemoteID != 0 }

func (s *Slot) debug() *zerolog.Event {
	return log.Debug().Str("component", "score").Int("player", s.PID)
}

func (s *Slot) warn() *zerolog.Event {
	return log.Warn().Str("component", "score").Int("player", s.PID)
}

func (s *Slot) SetTurn(turn bool) {
	s.isTurn = turn
	if !turn {
		if s.serve == ServeServing || s.serve == ServeScored {
			s.serve = ServeFinished
		}
		return
	}

	s.display.SetTurn(s.PID)
	if s.serve == ServeIdle || s.serve == ServeFinished {
		s.serve = ServeServing
		s.debug().Msg("player serving")
	}
}

// SetScore pushes score to the display. Unforced changes open or extend
// the scoring window of a serving player.
func (s *Slot) SetScore(score int, forced bool) error {
	if err := s.display.UpdateScore(s.PID, score); err != nil {
		return err
	}
	s.score = score
	if !forced && (s.serve == ServeServing || s.serve == ServeScored) {
		s.scoreStart = s.clock.Now()
		s.serve = ServeScored
		s.debug().Dur("window", s.serveTimeout).Msg("player scored, scoring window open")
	}
	return nil
}

func (s *Slot) ForceScore(score int) error {
	return s.SetScore(score, true)
}

// Increment raises the score by one unless the ceiling or the per-turn
// delta limit is hit. It reports whether the score moved.
func (s *Slot) Increment() bool {
	if s.score >= MaxScore || s.diff >= MaxTurnDelta {
		return false
	}
	if err := s.SetScore(s.score+1, false); err != nil {
		return false
	}
	s.diff++
	return true
}

func (s *Slot) Decrement() bool {
	if s.score <= MinScore || s.diff <= -MaxTurnDelta {
		return false
	}
	if err := s.SetScore(s.score-1, false); err != nil {
		return false
	}
	s.diff--
	return true
}

func (s *Slot) ResetDiff() {
	s.diff = 0
}

// ResetForGame zeroes the score and clears elimination ahead of a new game.
func (s *Slot) ResetForGame() {
	s.diff = 0
	s.cowout = false
	if err := s.SetScore(0, true); err != nil {
		s.warn().Err(err).Msg("failed to reset score")
	}
	s.ResetServe()
}

// MarkCowout flips the slot to eliminated the first time its score sits at
// the floor. Only that first call returns true.
func (s *Slot) MarkCowout() bool {
	if s.cowout || s.score != MinScore {
		return false
	}
	s.cowout = true
	return true
}

func (s *Slot) SetPanelText(text string) error {
	if _, err := TextModeFor(text); err != nil {
		return err
	}
	s.panelText = text
	return s.display.SetPanelText(s.PID, text)
}

// ShowText temporarily replaces the panel content; RestoreText undoes it.
func (s *Slot) ShowText(text string) {
	if err := s.display.SetPanelText(s.PID, text); err != nil {
		s.warn().Err(err).Str("text", text).Msg("cannot show panel text")
	}
}

func (s *Slot) RestoreText() {
	if s.panelText == "" {
		return
	}
	if err := s.display.SetPanelText(s.PID, s.panelText); err != nil {
		s.warn().Err(err).Msg("cannot restore panel text")
	}
}

func (s *Slot) ResetServe() {
	s.serve = ServeIdle
	s.scoreStart = time.Time{}
}

// DelayServe pushes an open scoring window back by d.
func (s *Slot) DelayServe(d time.Duration) {
	if s.serve == ServeScored {
		s.scoreStart = s.scoreStart.Add(d)
	}
}

// HandleServe advances the serve state machine; called once per tick.
func (s *Slot) HandleServe() {
	switch s.serve {
	case ServeFinished:
		s.ResetServe()
	case ServeScored:
		if s.clock.Since(s.scoreStart) > s.serveTimeout {
			s.debug().Msg("scoring window closed, advancing")
			if s.autoAdvance != nil {
				s.autoAdvance()
			}
			// the rotation may have handed the serve straight back
			if s.serve != ServeServing {
				s.serve = ServeFinished
			}
		}
	}
}

// Clear releases the slot and blanks its panel.
func (s *Slot) Clear() {
	s.Registered = false
	s.RemoteID = 0
	s.WebText = ""
	s.panelText = ""
	s.isTurn = false
	s.cowout = false
	s.score = 0
	s.diff = 0
	s.ResetServe()
	s.display.UnregisterPlayer(s.PID)
}

// TakeOver moves the registration of other into s and clears other.
func (s *Slot) TakeOver(other *Slot) error {
	if err := s.SetPanelText(other.panelText); err != nil {
		return err
	}
	s.WebText = other.WebText
	s.RemoteID = other.RemoteID
	s.Registered = true
	other.Clear()
	return nil
}

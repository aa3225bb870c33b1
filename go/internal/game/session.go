package game

import (
	"fmt"
	"time"

	"github.com/chainball/scoreboard/go/internal/announce"
	"github.com/chainball/scoreboard/go/internal/persist"
	"github.com/chainball/scoreboard/go/internal/score"
	"github.com/rs/zerolog/log"
)

// GameCanStart reports whether enough players are registered and, with
// remotes enabled, all of them have a remote paired.
func (e *Engine) GameCanStart() bool {
	return e.checkPlayersReady() == nil
}

func (e *Engine) checkPlayersReady() error {
	if e.playerCount() < 2 {
		return ErrNotEnoughPlayers
	}
	return e.checkRemotesPaired()
}

func (e *Engine) checkRemotesPaired() error {
	if !e.config.RemotesEnabled {
		return nil
	}
	for _, s := range e.slots {
		if s.Registered && !s.HasRemote() {
			return fmt.Errorf("%w: player %d", ErrPlayerRemoteNotPaired, s.PID)
		}
	}
	return nil
}

func (e *Engine) GameBegin() error {
	if e.ongoing {
		return ErrGameAlreadyStarted
	}
	if err := e.checkPlayersReady(); err != nil {
		return err
	}

	// presses made before the start must not count
	if e.remotes != nil {
		if n := e.remotes.FlushMessageQueue(); n > 0 {
			log.Debug().Str("component", "engine").Int("dropped", n).Msg("flushed remote messages")
		}
	}

	log.Info().Str("component", "engine").Msg("starting game")
	e.stopWinnerBlink()
	e.reorganizePlayers()

	players := make(map[int]persist.PlayerData)
	for _, s := range e.slots {
		if !s.Registered {
			continue
		}
		s.ResetForGame()
		players[s.PID] = persist.PlayerData{DisplayName: s.PanelText(), FullName: s.WebText}
	}
	e.gameID = e.recorder.NewRecord(players, e.nextUID)

	e.ongoing = true
	e.paused = false
	e.faultCount = 0
	e.scoreDisplayEnded = true
	e.setActivePlayer(0)

	e.mainTimer.Start(e.config.GameDuration)
	e.panelTimer.Start(e.config.GameDuration)

	remaining, _ := e.RemainingTime()
	e.recorder.StartGame(remaining)

	e.announceMain(announce.Announcement{Heading: "Game", Text: "START"}, 2*time.Second)
	log.Info().Str("component", "engine").Str("game_id", e.gameID).Int("players", len(players)).Msg("game started")
	return nil
}

// GameBeginWithUID starts a game under uid. The uid is taken only once the
// game is ready to start; an empty uid keeps the one set by SetGameUID.
func (e *Engine) GameBeginWithUID(uid string) error {
	if e.ongoing {
		return ErrGameAlreadyStarted
	}
	if err := e.checkPlayersReady(); err != nil {
		return err
	}
	if uid != "" {
		e.nextUID = uid
	}
	return e.GameBegin()
}

func (e *Engine) GamePause() error {
	if !e.ongoing {
		return ErrGameNotStarted
	}
	if e.paused {
		return ErrGameAlreadyPaused
	}

	e.recorder.PauseUnpause()
	e.paused = true
	e.pausedAt = e.clock.Now()
	e.mainTimer.Pause()
	e.panelTimer.Pause()
	log.Info().Str("component", "engine").Msg("game paused")
	return nil
}

// GameUnpause resumes the clocks. A remote may have been unpaired during
// the pause, so pairing is checked again.
func (e *Engine) GameUnpause() error {
	if !e.ongoing {
		return ErrGameNotStarted
	}
	if !e.paused {
		return ErrGameNotPaused
	}
	if err := e.checkRemotesPaired(); err != nil {
		return err
	}

	e.recorder.PauseUnpause()
	e.paused = false
	// scoring windows do not run down while paused
	for _, s := range e.slots {
		s.DelayServe(e.clock.Since(e.pausedAt))
	}
	e.mainTimer.Unpause()
	e.panelTimer.Unpause()
	log.Info().Str("component", "engine").Msg("game unpaused")
	return nil
}

// GameEnd stops the running game. A negative winner is resolved to the
// current high score.
func (e *Engine) GameEnd(reason string, winner int) error {
	if !e.ongoing {
		return ErrGameNotStarted
	}
	if winner >= 0 {
		if _, err := e.registeredSlot(winner); err != nil {
			return err
		}
	}
	e.endGame(reason, winner)
	return nil
}

func (e *Engine) gameTimeout() {
	if !e.ongoing {
		return
	}
	log.Info().Str("component", "engine").Msg("game has run out of time")
	e.endGame("TIMEOUT", -1)
}

func (e *Engine) endGame(reason string, winner int) {
	log.Info().Str("component", "engine").Str("reason", reason).Msg("stopping game")
	if winner < 0 {
		winner = e.highScore()
	}

	e.display.SetTurn(winner)
	e.display.BlinkStart(winner, false)
	e.blinking = winner
	e.mainTimer.Announce(announce.Announcement{
		Heading: e.slots[winner].PanelText(),
		Text:    "WINS!",
		OnDone:  e.mainTimer.Refresh,
	}, 10*time.Second)
	e.playSFX(SFXGameEnd)

	e.mainTimer.Stop(false)
	e.panelTimer.Stop(false)

	running, _ := e.RunningTime()
	remaining, _ := e.RemainingTime()
	e.recorder.EndGame(reason, winner, running, remaining)

	for _, s := range e.slots {
		s.ResetServe()
	}
	e.ongoing = false
	e.paused = false
	e.gameID = ""
	e.nextUID = ""
	log.Info().Str("component", "engine").Int("winner", winner).Msg("game stopped")
}

func (e *Engine) GameSetActivePlayer(pid int) error {
	if !e.ongoing {
		return ErrGameNotStarted
	}
	if _, err := e.registeredSlot(pid); err != nil {
		return err
	}
	e.setActivePlayer(pid)
	return nil
}

func (e *Engine) setActivePlayer(pid int) {
	for _, s := range e.slots {
		s.ResetDiff()
		s.SetTurn(s.PID == pid)
	}
	e.activePlayer = pid
}

// GamePassTurn hands the serve to the next player still in the game.
// forceServe marks a pass requested by the serving player's remote.
func (e *Engine) GamePassTurn(forceServe bool) error {
	if !e.ongoing {
		return ErrGameNotStarted
	}

	for _, s := range e.slots {
		s.ResetServe()
	}
	e.faultCount = 0

	if forceServe {
		e.recorder.LogEvent(persist.EventForceServe, e.playerDesc(e.activePlayer))
	}

	e.announceDeltas()

	if next, ok := e.nextPlayer(); ok {
		e.setActivePlayer(next)
	}

	if !forceServe {
		e.recorder.LogEvent(persist.EventServeAdvance, e.playerDesc(e.activePlayer))
	}
	return nil
}

func (e *Engine) autoAdvance() {
	if err := e.GamePassTurn(false); err != nil {
		log.Warn().Err(err).Str("component", "engine").Msg("could not advance serve")
	}
}

// nextPlayer searches forward from the active player, wrapping around,
// for the first registered player that is not eliminated.
func (e *Engine) nextPlayer() (int, bool) {
	for i := 1; i < MaxPlayers; i++ {
		s := e.slots[(e.activePlayer+i)%MaxPlayers]
		if s.Registered && s.Score() != score.MinScore {
			return s.PID, true
		}
	}
	return 0, false
}

func (e *Engine) announceDeltas() {
	for _, s := range e.slots {
		if !s.Registered || s.ScoreDiff() == 0 || s.Score() == score.MinScore {
			continue
		}
		e.announceMain(announce.Announcement{
			Heading: s.PanelText(),
			Text:    fmt.Sprintf("%+d", s.ScoreDiff()),
		}, 2*time.Second)
	}
}

// GameIncrementScore adds a point for pid if the game is live. Referee
// changes are stored without a SCORE_CHANGE event since the gesture event
// already describes them. It reports whether the score moved.
func (e *Engine) GameIncrementScore(pid int, referee bool) bool {
	return e.changeScore(pid, referee, (*score.Slot).Increment)
}

func (e *Engine) GameDecrementScore(pid int, referee bool) bool {
	return e.changeScore(pid, referee, (*score.Slot).Decrement)
}

func (e *Engine) changeScore(pid int, referee bool, step func(*score.Slot) bool) bool {
	if !e.ongoing || e.paused {
		return false
	}
	s, ok := e.slot(pid)
	if !ok || !s.Registered {
		return false
	}
	if !step(s) {
		return false
	}
	e.recorder.UpdateScore(pid, s.Score(), referee, e.gameTime())
	return true
}

func (e *Engine) GameForceScore(pid int, value int) error {
	s, err := e.registeredSlot(pid)
	if err != nil {
		return err
	}
	if value < score.MinScore || value > score.MaxScore {
		return fmt.Errorf("%w: %d", ErrInvalidScore, value)
	}
	if err := s.ForceScore(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if e.ongoing {
		e.recorder.ForceScore(pid, value, e.gameTime())
	}
	return nil
}

// SetGameUID sets the user facing id of the next game, or of the running
// one.
func (e *Engine) SetGameUID(uid string) {
	if !e.ongoing {
		e.nextUID = uid
		return
	}
	e.recorder.AssignUserID(uid)
}

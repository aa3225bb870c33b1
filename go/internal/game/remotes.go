package game

import (
	"fmt"

	"github.com/chainball/scoreboard/go/internal/pairing"
	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/rs/zerolog/log"
)

type PairStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (e *Engine) PairStatus() PairStatus {
	if !e.config.RemotesEnabled {
		return PairStatus{Status: pairing.StatusDisabled}
	}
	st := PairStatus{Status: e.pairing.Status()}
	if reason, failed := e.pairing.FailReason(); failed {
		st.Reason = reason.String()
	}
	return st
}

func (e *Engine) PairRemote(pid int) error {
	if !e.config.RemotesEnabled {
		return ErrRemotesDisabled
	}
	s, err := e.registeredSlot(pid)
	if err != nil {
		return err
	}
	if s.HasRemote() {
		return fmt.Errorf("%w: %s", ErrPlayerAlreadyPaired, remote.RemoteKey(s.RemoteID))
	}
	if e.pairing.IsRunning() {
		return ErrPairingInProgress
	}
	e.pairing.StartPair(pairing.Target(pid), e.config.PairTimeout)
	return nil
}

func (e *Engine) UnpairRemote(pid int) error {
	if !e.config.RemotesEnabled {
		return ErrRemotesDisabled
	}
	s, err := e.registeredSlot(pid)
	if err != nil {
		return err
	}
	if !s.HasRemote() {
		return fmt.Errorf("%w: %d", ErrPlayerNotPaired, pid)
	}

	log.Info().
		Str("component", "engine").
		Int("player", pid).
		Str("remote_id", remote.RemoteKey(s.RemoteID)).
		Msg("unpairing remote")
	e.pairing.StopTracking(s.RemoteID)
	s.RemoteID = 0
	return nil
}

func (e *Engine) PairMaster() error {
	if !e.config.RemotesEnabled {
		return ErrRemotesDisabled
	}
	if e.masterRemote != 0 {
		return fmt.Errorf("%w: %s", ErrMasterAlreadyPaired, remote.RemoteKey(e.masterRemote))
	}
	if e.pairing.IsRunning() {
		return ErrPairingInProgress
	}
	e.pairing.StartPair(pairing.MasterTarget, e.config.PairTimeout)
	return nil
}

func (e *Engine) UnpairMaster() error {
	if !e.config.RemotesEnabled {
		return ErrRemotesDisabled
	}
	if e.masterRemote != 0 {
		e.pairing.StopTracking(e.masterRemote)
	}
	e.masterRemote = 0
	return nil
}

func (e *Engine) MasterRemote() (uint32, bool) {
	return e.masterRemote, e.masterRemote != 0
}

func (e *Engine) pairEnd(target pairing.Target, remoteID uint32) {
	if target == pairing.MasterTarget {
		e.masterRemote = remoteID
		log.Info().Str("component", "engine").Str("remote_id", remote.RemoteKey(remoteID)).Msg("paired master remote")
		return
	}
	s, ok := e.slot(int(target))
	if !ok || !s.Registered {
		e.pairing.StopTracking(remoteID)
		log.Warn().
			Str("component", "engine").
			Stringer("target", target).
			Str("remote_id", remote.RemoteKey(remoteID)).
			Msg("pairing target is not registered, dropping remote")
		return
	}
	s.RemoteID = remoteID
	log.Info().
		Str("component", "engine").
		Int("player", s.PID).
		Str("remote_id", remote.RemoteKey(remoteID)).
		Msg("paired player remote")
}

func (e *Engine) pairFail(target pairing.Target, reason pairing.FailureReason) {
	log.Info().
		Str("component", "engine").
		Stringer("target", target).
		Stringer("reason", reason).
		Msg("remote pairing failed")
}

// receiveRemote handles at most one radio frame per tick.
func (e *Engine) receiveRemote() {
	if e.remotes == nil || e.decoder == nil || !e.remotes.MessagePending() {
		return
	}
	frame, ok := e.remotes.ReceiveMessage()
	if !ok {
		return
	}
	msg, err := e.decoder.Decode(frame)
	if err != nil {
		log.Debug().Err(err).Str("component", "engine").Msg("dropping remote frame")
		return
	}
	log.Debug().Str("component", "engine").Stringer("remote_msg", msg).Msg("received")
	e.dispatchRemote(msg)
}

func (e *Engine) dispatchRemote(msg remote.Message) {
	// pairing sees every message first and keeps the ones it claims
	if e.pairing.RemoteEvent(msg) {
		return
	}

	if e.masterRemote != 0 && msg.RemoteID == e.masterRemote {
		e.masterCommand(msg)
		return
	}

	if !e.ongoing || e.paused || msg.Command != remote.CommandBtnPress {
		return
	}

	pid, ok := e.playerByRemote(msg.RemoteID)
	if !ok {
		return
	}
	action, ok := e.config.Mapping.PlayerAction(pid, msg.Data)
	if !ok {
		log.Debug().Str("component", "engine").Int("player", pid).Uint8("button", msg.Data).Msg("unmapped button")
		return
	}

	switch action {
	case IncreaseScore:
		e.GameIncrementScore(pid, false)
	case DecreaseScore:
		e.GameDecrementScore(pid, false)
	case PassTurn:
		if pid != e.activePlayer {
			log.Debug().Str("component", "engine").Int("player", pid).Msg("only the active player can force the serve")
			return
		}
		if err := e.GamePassTurn(true); err != nil {
			log.Warn().Err(err).Str("component", "engine").Msg("could not pass turn")
		}
	}
}

func (e *Engine) masterCommand(msg remote.Message) {
	if msg.Command != remote.CommandBtnPress {
		return
	}
	action, ok := e.config.Mapping.MasterCommand(msg.Data)
	if !ok || action != PauseUnpause {
		return
	}

	var err error
	switch {
	case !e.ongoing:
		if !e.GameCanStart() {
			return
		}
		err = e.GameBegin()
	case e.paused:
		err = e.GameUnpause()
	default:
		err = e.GamePause()
	}
	if err != nil {
		log.Warn().Err(err).Str("component", "engine").Msg("master remote command failed")
	}
}

func (e *Engine) playerByRemote(remoteID uint32) (int, bool) {
	for _, s := range e.slots {
		if s.Registered && s.HasRemote() && s.RemoteID == remoteID {
			return s.PID, true
		}
	}
	return 0, false
}

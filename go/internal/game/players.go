package game

import (
	"fmt"
	"sort"

	"github.com/chainball/scoreboard/go/internal/pairing"
	"github.com/chainball/scoreboard/go/internal/score"
	"github.com/rs/zerolog/log"
)

// PlayerText is what a player is shown as: short text on the score panel
// and a longer name for the web front end.
type PlayerText struct {
	Panel string `json:"panel_text"`
	Web   string `json:"web_text"`
}

// NewPlayerText validates panel text; an empty web text falls back to it.
func NewPlayerText(panel, web string) (PlayerText, error) {
	if err := validPanelText(panel); err != nil {
		return PlayerText{}, err
	}
	if web == "" {
		web = panel
	}
	return PlayerText{Panel: panel, Web: web}, nil
}

func validPanelText(text string) error {
	if _, err := score.TextModeFor(text); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPlayerText, text, err)
	}
	return nil
}

// RegisterPlayers adds players keyed by slot index. Indices out of range
// and slots already taken are skipped.
func (e *Engine) RegisterPlayers(players map[int]PlayerText) error {
	if e.ongoing {
		return fmt.Errorf("%w: cannot register players", ErrGameRunning)
	}
	if len(players) > MaxPlayers-e.playerCount() {
		return ErrTooManyPlayers
	}
	for _, text := range players {
		if err := validPanelText(text.Panel); err != nil {
			return err
		}
	}

	pids := make([]int, 0, len(players))
	for pid := range players {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	for _, pid := range pids {
		s, ok := e.slot(pid)
		if !ok {
			log.Debug().Str("component", "engine").Int("player", pid).Msg("invalid player, ignoring")
			continue
		}
		if s.Registered {
			log.Debug().Str("component", "engine").Int("player", pid).Msg("player already registered, ignoring")
			continue
		}

		text := players[pid]
		if err := s.SetPanelText(text.Panel); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPlayerText, err)
		}
		s.WebText = text.Web
		if s.WebText == "" {
			s.WebText = text.Panel
		}
		s.Registered = true
		log.Info().Str("component", "engine").Int("player", pid).Str("panel_text", text.Panel).Msg("registered player")
	}
	return nil
}

// UnregisterPlayers removes players and moves the remaining ones down into
// the free slots, since turn rotation walks the slots in order.
func (e *Engine) UnregisterPlayers(pids []int) error {
	if e.ongoing {
		return fmt.Errorf("%w: cannot unregister players", ErrGameRunning)
	}
	e.stopWinnerBlink()

	for _, pid := range pids {
		s, ok := e.slot(pid)
		if !ok || !s.Registered {
			continue
		}
		if s.HasRemote() {
			e.pairing.StopTracking(s.RemoteID)
		}
		if target, running := e.pairing.Target(); running && target == pairing.Target(pid) {
			e.pairing.Cancel()
		}
		s.Clear()
		log.Info().Str("component", "engine").Int("player", pid).Msg("unregistered player")
	}

	e.reorganizePlayers()
	return nil
}

func (e *Engine) reorganizePlayers() {
	for i, free := range e.slots {
		if free.Registered {
			continue
		}
		for j := i + 1; j < MaxPlayers; j++ {
			from := e.slots[j]
			if !from.Registered {
				continue
			}
			remoteID := from.RemoteID
			if err := free.TakeOver(from); err != nil {
				log.Error().Err(err).Str("component", "engine").Int("from", j).Int("to", i).Msg("failed to move player")
				break
			}
			if remoteID != 0 {
				e.pairing.Track(remoteID, pairing.Target(i))
			}
			if target, running := e.pairing.Target(); running && target == pairing.Target(j) {
				e.pairing.Retarget(pairing.Target(i))
			}
			log.Debug().Str("component", "engine").Int("from", j).Int("to", i).Msg("moved player")
			break
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/chainball/scoreboard/go/internal/game"
)

const maxButton = 2

var (
	ErrIllegalMapping    = errors.New("illegal remote mapping")
	ErrIncompleteMapping = errors.New("incomplete remote mapping")

	buttonPattern = regexp.MustCompile(`^btn([0-9]+)$`)
)

// MappingConfig maps button names (btn0..btn2) to action names. An empty
// player table selects the default layout.
type MappingConfig struct {
	Player          map[string]string         `yaml:"player"`
	Master          map[string]string         `yaml:"master"`
	PlayerOverrides map[int]map[string]string `yaml:"player_overrides"`
}

var (
	playerActions = map[string]game.TurnAction{
		string(game.IncreaseScore): game.IncreaseScore,
		string(game.DecreaseScore): game.DecreaseScore,
		string(game.PassTurn):      game.PassTurn,
	}
	masterActions = map[string]game.MasterAction{
		string(game.PauseUnpause): game.PauseUnpause,
	}
)

func ParseRemoteMapping(mc MappingConfig) (game.RemoteMapping, error) {
	if len(mc.Player) == 0 && len(mc.Master) == 0 && len(mc.PlayerOverrides) == 0 {
		return game.DefaultRemoteMapping(), nil
	}

	player, err := parsePlayerTable(mc.Player)
	if err != nil {
		return game.RemoteMapping{}, err
	}

	master := make(map[uint8]game.MasterAction, len(mc.Master))
	for name, action := range mc.Master {
		button, err := parseButton(name)
		if err != nil {
			return game.RemoteMapping{}, err
		}
		a, ok := masterActions[action]
		if !ok {
			return game.RemoteMapping{}, fmt.Errorf("%w: action %q", ErrIllegalMapping, action)
		}
		master[button] = a
	}

	mapping := game.RemoteMapping{Player: player, Master: master}
	for pid, table := range mc.PlayerOverrides {
		if pid < 0 || pid >= game.MaxPlayers {
			return game.RemoteMapping{}, fmt.Errorf("%w: player %d", ErrIllegalMapping, pid)
		}
		parsed, err := parsePlayerTable(table)
		if err != nil {
			return game.RemoteMapping{}, fmt.Errorf("player %d: %w", pid, err)
		}
		if mapping.PlayerOverrides == nil {
			mapping.PlayerOverrides = make(map[int]map[uint8]game.TurnAction)
		}
		mapping.PlayerOverrides[pid] = parsed
	}
	return mapping, nil
}

func parsePlayerTable(table map[string]string) (map[uint8]game.TurnAction, error) {
	out := make(map[uint8]game.TurnAction, len(table))
	for name, action := range table {
		button, err := parseButton(name)
		if err != nil {
			return nil, err
		}
		a, ok := playerActions[action]
		if !ok {
			return nil, fmt.Errorf("%w: action %q", ErrIllegalMapping, action)
		}
		out[button] = a
	}
	if len(out) < len(playerActions) {
		return nil, fmt.Errorf("%w: player remote needs %d buttons mapped", ErrIncompleteMapping, len(playerActions))
	}
	return out, nil
}

func parseButton(name string) (uint8, error) {
	m := buttonPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("%w: button %q", ErrIllegalMapping, name)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxButton {
		return 0, fmt.Errorf("%w: button %q", ErrIllegalMapping, name)
	}
	return uint8(n), nil
}

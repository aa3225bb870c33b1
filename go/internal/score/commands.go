package score

import (
	"errors"
	"fmt"
)

// Opcode is a score-display serial command.
type Opcode uint8

const (
	OpClear Opcode = 1
	OpScore Opcode = 2
	OpTurn  Opcode = 3
	OpMode  Opcode = 4
	OpData  Opcode = 5
	OpBlink Opcode = 6
)

const (
	frameTerminator = 0xFF

	// AllPlayers addresses every panel at once.
	AllPlayers = 0xFF
	// NoPlayer addresses no panel; TURN to NoPlayer clears the indicator.
	NoPlayer = 0xFE
)

const (
	MaxScore = 5
	MinScore = -10

	scoreOffset = 10
)

// TextMode selects the panel font.
type TextMode uint8

const (
	ModeSmall TextMode = 0
	ModeLarge TextMode = 1
)

const (
	LargeTextMaxLen = 7
	SmallTextMaxLen = 20
)

const (
	BlinkEnable = 0x01
	BlinkFast   = 0x02
	BlinkResume = 0x04
)

var (
	ErrScoreOutOfBounds = errors.New("score out of bounds")
	ErrTextTooBig       = errors.New("panel text too big")
	ErrEmptyText        = errors.New("panel text is empty")
)

// Command is one frame on the score-display serial line.
type Command struct {
	Player  uint8
	Op      Opcode
	Payload []byte
}

func (c Command) Frame() []byte {
	frame := make([]byte, 0, len(c.Payload)+3)
	frame = append(frame, c.Player, byte(c.Op))
	frame = append(frame, c.Payload...)
	return append(frame, frameTerminator)
}

func (c Command) String() string {
	return fmt.Sprintf("player=%#02x op=%d payload=%x", c.Player, c.Op, c.Payload)
}

func clearCommand(player uint8) Command {
	return Command{Player: player, Op: OpClear}
}

func scoreCommand(player uint8, score int) (Command, error) {
	if score < MinScore || score > MaxScore {
		return Command{}, fmt.Errorf("%w: %d", ErrScoreOutOfBounds, score)
	}
	return Command{Player: player, Op: OpScore, Payload: []byte{byte(score + scoreOffset)}}, nil
}

func turnCommand(player uint8) Command {
	return Command{Player: player, Op: OpTurn}
}

func modeCommand(player uint8, mode TextMode) Command {
	return Command{Player: player, Op: OpMode, Payload: []byte{byte(mode)}}
}

func dataCommand(player uint8, text string) Command {
	payload := make([]byte, 0, len(text)+1)
	payload = append(payload, byte(len(text)))
	payload = append(payload, text...)
	return Command{Player: player, Op: OpData, Payload: payload}
}

func blinkCommand(player uint8, flags byte) Command {
	return Command{Player: player, Op: OpBlink, Payload: []byte{flags}}
}

// TextModeFor picks the font that fits text.
func TextModeFor(text string) (TextMode, error) {
	switch n := len(text); {
	case n == 0:
		return 0, ErrEmptyText
	case n <= LargeTextMaxLen:
		return ModeLarge, nil
	case n <= SmallTextMaxLen:
		return ModeSmall, nil
	default:
		return 0, fmt.Errorf("%w: %d characters, at most %d", ErrTextTooBig, n, SmallTextMaxLen)
	}
}

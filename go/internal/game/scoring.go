package game

import (
	"fmt"

	"github.com/chainball/scoreboard/go/internal/persist"
)

// Gesture is a referee call made from the control surface.
type Gesture string

const (
	GestureDeadball    Gesture = "deadball"
	GestureChainball   Gesture = "chainball"
	GestureJailbreak   Gesture = "jailbreak"
	GestureRatmeat     Gesture = "ratmeat"
	GestureMudskipper  Gesture = "mudskipper"
	GestureSailormoon  Gesture = "sailormoon"
	GestureFault       Gesture = "fault"
	GestureDoublefault Gesture = "doublefault"
	GestureSlowpoke    Gesture = "slowpoke"
)

type gestureRule struct {
	event persist.EventType
	delta int
}

// Bonus and penalty calls are applied as single steps, so a +2 call still
// respects the per-turn limit.
var gestureRules = map[Gesture]gestureRule{
	GestureDeadball:    {event: persist.EventDeadball},
	GestureChainball:   {event: persist.EventChainball, delta: 1},
	GestureJailbreak:   {event: persist.EventJailbreak, delta: 2},
	GestureRatmeat:     {event: persist.EventBallHit, delta: -1},
	GestureMudskipper:  {event: persist.EventMudskipper, delta: -1},
	GestureSailormoon:  {event: persist.EventSailormoon, delta: -2},
	GestureDoublefault: {event: persist.EventDoubleFault, delta: -1},
	GestureSlowpoke:    {event: persist.EventSlowpoke, delta: -1},
}

func (e *Engine) ScoringEvent(pid int, gesture Gesture) error {
	rule, known := gestureRules[gesture]
	if !known && gesture != GestureFault {
		return fmt.Errorf("%w: %q", ErrUnknownScoringEvent, gesture)
	}
	if !e.ongoing {
		return ErrGameNotStarted
	}
	if _, err := e.registeredSlot(pid); err != nil {
		return err
	}

	if gesture == GestureFault {
		// a second fault in the same serve is a double fault
		if e.faultCount == 0 {
			e.faultCount = 1
			e.recorder.LogEvent(persist.EventFault, e.playerDesc(pid))
			return nil
		}
		e.faultCount = 0
		rule = gestureRules[GestureDoublefault]
	}

	e.recorder.LogEvent(rule.event, e.playerDesc(pid))
	if gesture == GestureDeadball {
		return e.GamePassTurn(false)
	}
	for i := 0; i < rule.delta; i++ {
		e.GameIncrementScore(pid, true)
	}
	for i := 0; i > rule.delta; i-- {
		e.GameDecrementScore(pid, true)
	}
	return nil
}

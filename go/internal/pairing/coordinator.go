package pairing

import (
	"fmt"
	"time"

	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Target is the slot a pairing session binds a remote to: a player index
// or MasterTarget.
type Target int

const MasterTarget Target = -1

func (t Target) String() string {
	if t == MasterTarget {
		return "master"
	}
	return fmt.Sprintf("player %d", int(t))
}

type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

type FailureReason int

const (
	FailureNone FailureReason = iota
	FailureTimeout
	FailureAlreadyPaired
)

func (r FailureReason) String() string {
	switch r {
	case FailureTimeout:
		return "TIMEOUT"
	case FailureAlreadyPaired:
		return "ALREADY_PAIRED"
	default:
		return "NONE"
	}
}

// Status strings reported to the control surface.
const (
	StatusDisabled = "DISABLED"
	StatusPairing  = "PAIR"
	StatusFailed   = "FAIL"
	StatusIdle     = "IDLE"
)

type (
	SuccessFunc func(target Target, remoteID uint32)
	FailureFunc func(target Target, reason FailureReason)
)

// Coordinator runs at most one pairing session at a time and remembers
// which remote is bound to which target. It is driven from the engine tick
// and is not safe for concurrent use.
type Coordinator struct {
	clock     clockwork.Clock
	onSuccess SuccessFunc
	onFailure FailureFunc

	state      State
	target     Target
	startedAt  time.Time
	timeout    time.Duration
	failReason FailureReason
	tracked    map[uint32]Target
}

func NewCoordinator(clock clockwork.Clock, onSuccess SuccessFunc, onFailure FailureFunc) *Coordinator {
	return &Coordinator{
		clock:     clock,
		onSuccess: onSuccess,
		onFailure: onFailure,
		tracked:   make(map[uint32]Target),
	}
}

func (c *Coordinator) StartPair(target Target, timeout time.Duration) {
	log.Info().
		Str("component", "pairing").
		Stringer("target", target).
		Dur("timeout", timeout).
		Msg("pairing remote")

	c.target = target
	c.timeout = timeout
	c.startedAt = c.clock.Now()
	c.failReason = FailureNone
	c.state = StateRunning
}

// RemoteEvent offers a message to the running session. It reports whether
// the message was consumed by pairing.
func (c *Coordinator) RemoteEvent(msg remote.Message) bool {
	if c.state != StateRunning {
		return false
	}

	if _, ok := c.tracked[msg.RemoteID]; ok {
		c.fail(FailureAlreadyPaired)
		return true
	}

	c.tracked[msg.RemoteID] = c.target
	c.state = StateIdle
	log.Info().
		Str("component", "pairing").
		Stringer("target", c.target).
		Uint32("remote_id", msg.RemoteID).
		Msg("remote paired")
	if c.onSuccess != nil {
		c.onSuccess(c.target, msg.RemoteID)
	}
	return true
}

func (c *Coordinator) Handle() {
	if c.state != StateRunning {
		return
	}
	if c.clock.Since(c.startedAt) > c.timeout {
		c.fail(FailureTimeout)
	}
}

func (c *Coordinator) fail(reason FailureReason) {
	c.state = StateError
	c.failReason = reason
	log.Warn().
		Str("component", "pairing").
		Stringer("target", c.target).
		Stringer("reason", reason).
		Msg("pairing failed")
	if c.onFailure != nil {
		c.onFailure(c.target, reason)
	}
}

func (c *Coordinator) StopTracking(remoteID uint32) {
	delete(c.tracked, remoteID)
}

// Track binds remoteID to target without a session, used when players are
// moved to other slots.
func (c *Coordinator) Track(remoteID uint32, target Target) {
	c.tracked[remoteID] = target
}

// Cancel ends the running session without calling either callback.
func (c *Coordinator) Cancel() {
	if c.state != StateRunning {
		return
	}
	log.Info().Str("component", "pairing").Stringer("target", c.target).Msg("pairing cancelled")
	c.state = StateIdle
}

// Retarget points the running session at another slot.
func (c *Coordinator) Retarget(target Target) {
	if c.state != StateRunning {
		return
	}
	c.target = target
}

// Target is the slot of the running session.
func (c *Coordinator) Target() (Target, bool) {
	return c.target, c.state == StateRunning
}

func (c *Coordinator) IsRunning() bool {
	return c.state == StateRunning
}

// FailReason returns the reason of the last failed session while the
// coordinator sits in the error state.
func (c *Coordinator) FailReason() (FailureReason, bool) {
	if c.state != StateError {
		return FailureNone, false
	}
	return c.failReason, true
}

func (c *Coordinator) Status() string {
	switch c.state {
	case StateRunning:
		return StatusPairing
	case StateError:
		return StatusFailed
	default:
		return StatusIdle
	}
}

package pairing

import (
	"testing"
	"time"

	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callbackLog struct {
	successes []uint32
	targets   []Target
	failures  []FailureReason
}

func newTestCoordinator(clock clockwork.Clock) (*Coordinator, *callbackLog) {
	cb := &callbackLog{}
	c := NewCoordinator(clock,
		func(target Target, id uint32) {
			cb.targets = append(cb.targets, target)
			cb.successes = append(cb.successes, id)
		},
		func(_ Target, reason FailureReason) {
			cb.failures = append(cb.failures, reason)
		},
	)
	return c, cb
}

func press(id uint32) remote.Message {
	return remote.Message{RemoteID: id, Command: remote.CommandBtnPress}
}

func TestPairingSuccess(t *testing.T) {
	c, cb := newTestCoordinator(clockwork.NewFakeClock())

	assert.False(t, c.RemoteEvent(press(0x10)), "idle coordinator must not consume")

	c.StartPair(2, 30*time.Second)
	assert.True(t, c.IsRunning())
	assert.Equal(t, StatusPairing, c.Status())

	assert.True(t, c.RemoteEvent(press(0x10)))
	assert.False(t, c.IsRunning())
	assert.Equal(t, StatusIdle, c.Status())
	assert.Equal(t, []uint32{0x10}, cb.successes)
	assert.Equal(t, []Target{2}, cb.targets)
	assert.Empty(t, cb.failures)
}

func TestPairingTimeoutFiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c, cb := newTestCoordinator(clock)

	c.StartPair(0, 5*time.Second)
	clock.Advance(5 * time.Second)
	c.Handle()
	assert.Empty(t, cb.failures, "timeout requires strictly more than the window")

	clock.Advance(time.Second)
	c.Handle()
	c.Handle()

	require.Equal(t, []FailureReason{FailureTimeout}, cb.failures)
	reason, failed := c.FailReason()
	assert.True(t, failed)
	assert.Equal(t, FailureTimeout, reason)
	assert.Equal(t, StatusFailed, c.Status())

	// a frame after failure is no longer consumed
	assert.False(t, c.RemoteEvent(press(0x20)))
}

func TestPairingAlreadyPaired(t *testing.T) {
	c, cb := newTestCoordinator(clockwork.NewFakeClock())

	c.StartPair(0, 30*time.Second)
	require.True(t, c.RemoteEvent(press(0x10)))

	c.StartPair(1, 30*time.Second)
	assert.True(t, c.RemoteEvent(press(0x10)))

	assert.Equal(t, []FailureReason{FailureAlreadyPaired}, cb.failures)
	assert.Len(t, cb.successes, 1)
	reason, failed := c.FailReason()
	assert.True(t, failed)
	assert.Equal(t, FailureAlreadyPaired, reason)
}

func TestStopTrackingAllowsRepair(t *testing.T) {
	c, cb := newTestCoordinator(clockwork.NewFakeClock())

	c.StartPair(MasterTarget, 30*time.Second)
	require.True(t, c.RemoteEvent(press(0x10)))
	c.StopTracking(0x10)

	c.StartPair(3, 30*time.Second)
	require.True(t, c.RemoteEvent(press(0x10)))
	assert.Equal(t, []Target{MasterTarget, 3}, cb.targets)
	assert.Empty(t, cb.failures)

	_, failed := c.FailReason()
	assert.False(t, failed)
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "master", MasterTarget.String())
	assert.Equal(t, "player 1", Target(1).String())
}

func TestCancelAndRetarget(t *testing.T) {
	c, cb := newTestCoordinator(clockwork.NewFakeClock())

	c.StartPair(2, 30*time.Second)
	c.Retarget(1)
	target, running := c.Target()
	require.True(t, running)
	assert.Equal(t, Target(1), target)

	require.True(t, c.RemoteEvent(press(0x10)))
	assert.Equal(t, []Target{1}, cb.targets)

	c.StartPair(3, 30*time.Second)
	c.Cancel()
	assert.False(t, c.IsRunning())
	assert.Equal(t, StatusIdle, c.Status())
	assert.False(t, c.RemoteEvent(press(0x20)))
	assert.Len(t, cb.successes, 1)
	assert.Empty(t, cb.failures)

	// retargeting an idle coordinator does nothing
	c.Retarget(0)
	_, running = c.Target()
	assert.False(t, running)
}

package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chainball/scoreboard/go/internal/pairing"
	"github.com/chainball/scoreboard/go/internal/persist"
	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerWinsAtTopScore(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")

	for i := 0; i < 5; i++ {
		require.NoError(t, h.engine.GameSetActivePlayer(0))
		require.True(t, h.engine.GameIncrementScore(0, false))
	}
	// the ceiling holds
	require.NoError(t, h.engine.GameSetActivePlayer(0))
	assert.False(t, h.engine.GameIncrementScore(0, false))

	h.engine.Tick()

	assert.False(t, h.engine.Ongoing())
	end, ok := h.sink.last(persist.EventGameEnd)
	require.True(t, ok)
	assert.Equal(t, "PLAYER_WON", end.Desc["reason"])
	assert.Equal(t, 0, end.Desc["winner"])
	assert.Equal(t, 0, h.display.lastTurn())
	assert.Equal(t, []string{"end.wav"}, h.sfx.played)
	assert.Equal(t, 5, h.sink.count(persist.EventScoreChange))
}

func TestGameTimeout(t *testing.T) {
	tests := []struct {
		name   string
		names  []string
		scores map[int]int
		winner int
	}{
		{name: "no scoring", names: []string{"A", "B"}, winner: 0},
		{name: "tie goes to lowest index", names: []string{"A", "B", "C"}, scores: map[int]int{0: 1, 1: 2, 2: 2}, winner: 1},
		{name: "clear leader", names: []string{"A", "B", "C"}, scores: map[int]int{0: -3, 1: 0, 2: 4}, winner: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.startGame(t, tt.names...)
			for pid, s := range tt.scores {
				require.NoError(t, h.engine.GameForceScore(pid, s))
			}

			h.clock.Advance(10 * time.Minute)
			h.engine.Tick()
			remaining, ok := h.engine.RemainingTime()
			require.True(t, ok)
			assert.Equal(t, 10*time.Minute, remaining)

			h.clock.Advance(10 * time.Minute)
			h.engine.Tick()

			assert.False(t, h.engine.Ongoing())
			end, ok := h.sink.last(persist.EventGameEnd)
			require.True(t, ok)
			assert.Equal(t, "TIMEOUT", end.Desc["reason"])
			assert.Equal(t, tt.winner, end.Desc["winner"])
			assert.Equal(t, 1200, end.Desc["gtime"])
			assert.Equal(t, 0, end.Desc["rtime"])
			assert.Equal(t, 1, h.sink.count(persist.EventGameEnd))
		})
	}
}

func TestCowoutFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B", "C")

	require.NoError(t, h.engine.GameForceScore(0, -9))
	require.True(t, h.engine.GameDecrementScore(0, false))
	assert.False(t, h.engine.GameDecrementScore(0, false))

	for i := 0; i < 3; i++ {
		h.engine.Tick()
	}

	assert.True(t, h.engine.Ongoing())
	assert.Equal(t, 1, h.sink.count(persist.EventCowout))
	assert.Equal(t, []string{"cow.wav"}, h.sfx.played)
	assert.True(t, h.engine.Snapshot().Players[0].Cowout)

	// rotation skips the eliminated player
	require.NoError(t, h.engine.GamePassTurn(true))
	assert.Equal(t, 1, h.engine.ActivePlayer())
	require.NoError(t, h.engine.GamePassTurn(true))
	assert.Equal(t, 2, h.engine.ActivePlayer())
	require.NoError(t, h.engine.GamePassTurn(true))
	assert.Equal(t, 1, h.engine.ActivePlayer())
}

func TestLastPlayerStandingWins(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")

	require.NoError(t, h.engine.GameForceScore(1, -10))
	h.engine.Tick()

	assert.False(t, h.engine.Ongoing())
	end, ok := h.sink.last(persist.EventGameEnd)
	require.True(t, ok)
	assert.Equal(t, "TIMEOUT", end.Desc["reason"])
	assert.Equal(t, 0, end.Desc["winner"])
	assert.Equal(t, 1, h.sink.count(persist.EventCowout))
}

func TestServeAutoAdvance(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")

	h.press(0x10, 0)
	assert.Equal(t, "SCORED", h.engine.Snapshot().Players[0].ServeState)

	h.clock.Advance(2 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 0, h.engine.ActivePlayer())

	h.clock.Advance(2 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 1, h.engine.ActivePlayer())

	adv, ok := h.sink.last(persist.EventServeAdvance)
	require.True(t, ok)
	assert.Equal(t, 1, adv.Desc["player"])

	snap := h.engine.Snapshot()
	assert.Equal(t, "FINISHED", snap.Players[0].ServeState)
	assert.Equal(t, "SERVING", snap.Players[1].ServeState)

	h.engine.Tick()
	assert.Equal(t, "IDLE", h.engine.Snapshot().Players[0].ServeState)
}

func TestRemoteDispatch(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")

	h.press(0x10, 0)
	assert.Equal(t, 1, h.engine.Snapshot().Players[0].Score)

	// only the serving player can pass
	h.press(0x11, 2)
	assert.Equal(t, 0, h.engine.ActivePlayer())

	h.press(0x10, 2)
	assert.Equal(t, 1, h.engine.ActivePlayer())
	force, ok := h.sink.last(persist.EventForceServe)
	require.True(t, ok)
	assert.Equal(t, 0, force.Desc["player"])

	h.press(0x11, 1)
	assert.Equal(t, -1, h.engine.Snapshot().Players[1].Score)

	// unknown remotes, unmapped buttons and battery reports do nothing
	h.press(0x99, 0)
	h.press(0x11, 7)
	h.remotes.push(0x11, remote.CommandBatt, 80)
	h.engine.Tick()
	snap := h.engine.Snapshot()
	assert.Equal(t, 1, snap.Players[0].Score)
	assert.Equal(t, -1, snap.Players[1].Score)

	// invalid frames are dropped
	h.remotes.frames = append(h.remotes.frames, remote.RawFrame{Payload: []byte{0, 0, 0, 0, 2, 0}})
	h.engine.Tick()
	assert.False(t, h.remotes.MessagePending())
}

func TestPlayerMappingOverride(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Mapping.PlayerOverrides = map[int]map[uint8]TurnAction{
			1: {0: DecreaseScore, 1: IncreaseScore, 2: PassTurn},
		}
	})
	h.startGame(t, "A", "B")
	require.NoError(t, h.engine.GameSetActivePlayer(1))

	h.press(0x11, 0)
	h.press(0x10, 0)
	snap := h.engine.Snapshot()
	assert.Equal(t, 1, snap.Players[0].Score)
	assert.Equal(t, -1, snap.Players[1].Score)
}

func TestMasterRemote(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B")

	require.NoError(t, h.engine.PairMaster())
	h.press(0x20, 0)
	id, ok := h.engine.MasterRemote()
	require.True(t, ok)
	assert.Equal(t, uint32(0x20), id)
	assert.ErrorIs(t, h.engine.PairMaster(), ErrMasterAlreadyPaired)

	// players are not paired yet, so the game cannot start
	h.press(0x20, 0)
	assert.False(t, h.engine.Ongoing())

	h.pair(t, 0, 0x10)
	h.pair(t, 1, 0x11)
	h.press(0x20, 0)
	require.True(t, h.engine.Ongoing())

	h.press(0x20, 0)
	assert.True(t, h.engine.Paused())

	// scoring is ignored while paused
	h.press(0x10, 0)
	assert.Equal(t, 0, h.engine.Snapshot().Players[0].Score)

	// a remote unpaired during the pause blocks the unpause
	require.NoError(t, h.engine.UnpairRemote(1))
	h.press(0x20, 0)
	assert.True(t, h.engine.Paused())
	assert.ErrorIs(t, h.engine.GameUnpause(), ErrPlayerRemoteNotPaired)

	h.pair(t, 1, 0x12)
	h.press(0x20, 0)
	assert.False(t, h.engine.Paused())
	assert.Equal(t, []persist.EventType{persist.EventGamePause, persist.EventGameUnpause},
		[]persist.EventType{h.sink.events[1].Type, h.sink.events[2].Type})

	require.NoError(t, h.engine.UnpairMaster())
	_, ok = h.engine.MasterRemote()
	assert.False(t, ok)
}

func TestPairing(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B")
	assert.Equal(t, PairStatus{Status: pairing.StatusIdle}, h.engine.PairStatus())

	require.NoError(t, h.engine.PairRemote(0))
	assert.Equal(t, PairStatus{Status: pairing.StatusPairing}, h.engine.PairStatus())
	assert.ErrorIs(t, h.engine.PairMaster(), ErrPairingInProgress)
	h.press(0xAA, 1)
	assert.Equal(t, uint32(0xAA), h.engine.slots[0].RemoteID)

	err := h.engine.PairRemote(0)
	assert.ErrorIs(t, err, ErrPlayerAlreadyPaired)
	assert.ErrorIs(t, err, ErrStateConflict)

	// the same remote cannot be bound twice
	require.NoError(t, h.engine.PairRemote(1))
	h.press(0xAA, 1)
	assert.Equal(t, PairStatus{Status: pairing.StatusFailed, Reason: "ALREADY_PAIRED"}, h.engine.PairStatus())
	assert.False(t, h.engine.slots[1].HasRemote())

	require.NoError(t, h.engine.PairRemote(1))
	h.clock.Advance(31 * time.Second)
	h.engine.Tick()
	assert.Equal(t, PairStatus{Status: pairing.StatusFailed, Reason: "TIMEOUT"}, h.engine.PairStatus())

	err = h.engine.PairRemote(7)
	assert.ErrorIs(t, err, ErrInvalidPlayer)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, h.engine.PairRemote(2), ErrPlayerNotRegistered)
	assert.ErrorIs(t, h.engine.UnpairRemote(1), ErrPlayerNotPaired)

	require.NoError(t, h.engine.UnpairRemote(0))
	h.pair(t, 1, 0xAA)
}

func TestRemotesDisabled(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.RemotesEnabled = false })
	h.register(t, "A", "B")

	assert.Equal(t, PairStatus{Status: pairing.StatusDisabled}, h.engine.PairStatus())
	assert.ErrorIs(t, h.engine.PairRemote(0), ErrRemotesDisabled)
	assert.ErrorIs(t, h.engine.PairMaster(), ErrRemotesDisabled)
	assert.True(t, h.engine.GameCanStart())
	require.NoError(t, h.engine.GameBegin())
}

func TestGameBeginValidation(t *testing.T) {
	h := newHarness(t)

	err := h.engine.GameBegin()
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewPlayerText("", "web")
	assert.ErrorIs(t, err, ErrInvalidPlayerText)
	err = h.engine.RegisterPlayers(map[int]PlayerText{0: {Panel: "A"}, 1: {Panel: "THIS NAME IS FAR TOO LONG"}})
	assert.ErrorIs(t, err, ErrInvalidPlayerText)
	assert.Empty(t, h.engine.Snapshot().Players)

	h.register(t, "A", "B")
	err = h.engine.GameBegin()
	assert.ErrorIs(t, err, ErrPlayerRemoteNotPaired)
	assert.ErrorIs(t, err, ErrStateConflict)

	err = h.engine.RegisterPlayers(map[int]PlayerText{2: {Panel: "C"}, 3: {Panel: "D"}, 4: {Panel: "E"}})
	assert.ErrorIs(t, err, ErrTooManyPlayers)

	h.pair(t, 0, 0x10)
	h.pair(t, 1, 0x11)
	h.remotes.push(0x10, remote.CommandBtnPress, 0)
	require.NoError(t, h.engine.GameBegin())
	assert.False(t, h.remotes.MessagePending(), "stale presses are flushed on start")

	assert.ErrorIs(t, h.engine.GameBegin(), ErrGameAlreadyStarted)
	assert.ErrorIs(t, h.engine.RegisterPlayers(map[int]PlayerText{2: {Panel: "C"}}), ErrGameRunning)
	assert.ErrorIs(t, h.engine.UnregisterPlayers([]int{0}), ErrGameRunning)
	assert.ErrorIs(t, h.engine.GameUnpause(), ErrGameNotPaused)
	assert.ErrorIs(t, h.engine.GameSetActivePlayer(3), ErrPlayerNotRegistered)

	require.NoError(t, h.engine.GameEnd("ABORTED", -1))
	assert.ErrorIs(t, h.engine.GameEnd("ABORTED", -1), ErrGameNotStarted)
	assert.ErrorIs(t, h.engine.GamePause(), ErrGameNotStarted)
	assert.ErrorIs(t, h.engine.ScoringEvent(0, GestureChainball), ErrGameNotStarted)
}

func TestUnregisterReorganizesPlayers(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B", "C")
	h.pair(t, 2, 0x30)

	require.NoError(t, h.engine.UnregisterPlayers([]int{0, 9}))

	snap := h.engine.Snapshot()
	require.Len(t, snap.Players, 2)
	assert.Equal(t, "B", snap.Players[0].PanelText)
	assert.Equal(t, 0, snap.Players[0].ID)
	assert.Equal(t, "C", snap.Players[1].PanelText)
	assert.Equal(t, remote.RemoteKey(0x30), snap.Players[1].RemoteID)
	assert.Contains(t, h.display.cleared, 2)

	// the moved remote is still bound
	require.NoError(t, h.engine.PairRemote(0))
	h.press(0x30, 0)
	assert.Equal(t, PairStatus{Status: pairing.StatusFailed, Reason: "ALREADY_PAIRED"}, h.engine.PairStatus())

	// unregistering frees the remote for someone else
	require.NoError(t, h.engine.UnregisterPlayers([]int{1}))
	h.pair(t, 0, 0x30)
}

func TestScoringEvents(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")

	require.NoError(t, h.engine.ScoringEvent(0, GestureJailbreak))
	assert.Equal(t, 2, h.engine.Snapshot().Players[0].Score)
	// the per-turn limit caps a further bonus
	require.NoError(t, h.engine.ScoringEvent(0, GestureChainball))
	assert.Equal(t, 2, h.engine.Snapshot().Players[0].Score)

	require.NoError(t, h.engine.ScoringEvent(1, GestureFault))
	assert.Equal(t, 0, h.engine.Snapshot().Players[1].Score)
	require.NoError(t, h.engine.ScoringEvent(1, GestureFault))
	assert.Equal(t, -1, h.engine.Snapshot().Players[1].Score)

	require.NoError(t, h.engine.ScoringEvent(1, GestureSailormoon))
	assert.Equal(t, -2, h.engine.Snapshot().Players[1].Score)

	require.NoError(t, h.engine.ScoringEvent(0, GestureDeadball))
	assert.Equal(t, 1, h.engine.ActivePlayer())

	assert.Equal(t, []persist.EventType{
		persist.EventGameStart,
		persist.EventJailbreak,
		persist.EventChainball,
		persist.EventFault,
		persist.EventDoubleFault,
		persist.EventSailormoon,
		persist.EventDeadball,
		persist.EventServeAdvance,
	}, h.sink.types())

	err := h.engine.ScoringEvent(0, Gesture("backflip"))
	assert.ErrorIs(t, err, ErrUnknownScoringEvent)
	assert.ErrorIs(t, h.engine.ScoringEvent(3, GestureChainball), ErrPlayerNotRegistered)
}

func TestPauseFreezesClock(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")

	h.clock.Advance(time.Minute)
	h.engine.Tick()
	require.NoError(t, h.engine.GamePause())
	assert.ErrorIs(t, h.engine.GamePause(), ErrGameAlreadyPaused)
	assert.False(t, h.engine.GameIncrementScore(0, false))

	h.clock.Advance(30 * time.Minute)
	h.engine.Tick()
	assert.True(t, h.engine.Ongoing())
	remaining, _ := h.engine.RemainingTime()
	assert.Equal(t, 19*time.Minute, remaining)

	require.NoError(t, h.engine.GameUnpause())
	h.clock.Advance(time.Minute)
	running, _ := h.engine.RunningTime()
	assert.Equal(t, 2*time.Minute, running)
}

func TestGameUID(t *testing.T) {
	h := newHarness(t)
	h.engine.SetGameUID("semi-1")
	h.startGame(t, "A", "B")
	assert.Equal(t, "semi-1", h.journal.CurrentUserID())

	h.engine.SetGameUID("semi-2")
	assert.Equal(t, "semi-2", h.journal.CurrentUserID())
	assert.Equal(t, "000000", h.engine.Snapshot().GameID)
}

func TestSnapshotJSON(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B")

	raw, err := json.Marshal(h.engine.Snapshot())
	require.NoError(t, err)
	var idle map[string]any
	require.NoError(t, json.Unmarshal(raw, &idle))
	assert.Nil(t, idle["remaining_time"])
	assert.Equal(t, float64(-1), idle["active_player"])
	assert.Len(t, idle["players"], 2)

	h.pair(t, 0, 0x10)
	h.pair(t, 1, 0x11)
	require.NoError(t, h.engine.GameBegin())
	snap := h.engine.Snapshot()
	require.NotNil(t, snap.Remaining)
	assert.Equal(t, 1200, *snap.Remaining)
	assert.Equal(t, 0, *snap.Running)
	assert.True(t, snap.Players[0].IsTurn)
}

func TestShutdownStopsLinks(t *testing.T) {
	h := newHarness(t)
	h.engine.Shutdown()
	assert.True(t, h.display.stopped)
	assert.True(t, h.remotes.stopped)
}

func TestGameBeginWithUID(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B")

	// a rejected start leaves the next uid alone
	assert.ErrorIs(t, h.engine.GameBeginWithUID("early"), ErrPlayerRemoteNotPaired)

	h.pair(t, 0, 0x10)
	h.pair(t, 1, 0x11)
	require.NoError(t, h.engine.GameBeginWithUID("final-1"))
	assert.Equal(t, "final-1", h.journal.CurrentUserID())

	err := h.engine.GameBeginWithUID("other-game")
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
	assert.Equal(t, "final-1", h.journal.CurrentUserID())

	require.NoError(t, h.engine.GameEnd("ABORTED", -1))
	require.NoError(t, h.engine.GameBeginWithUID(""))
	assert.Empty(t, h.journal.CurrentUserID())
}

func TestUnregisterCancelsPairing(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B", "C")

	// the slot being paired is emptied
	require.NoError(t, h.engine.PairRemote(1))
	require.NoError(t, h.engine.UnregisterPlayers([]int{1}))
	assert.Equal(t, PairStatus{Status: pairing.StatusIdle}, h.engine.PairStatus())
	h.press(0x77, 0)
	for _, s := range h.engine.slots {
		assert.False(t, s.HasRemote(), "slot %d", s.PID)
	}

	// a newcomer in the freed slot does not inherit anything
	require.NoError(t, h.engine.RegisterPlayers(map[int]PlayerText{2: {Panel: "D"}}))
	assert.True(t, h.engine.slots[2].Registered)
	assert.False(t, h.engine.slots[2].HasRemote())
}

func TestUnregisterRetargetsPairing(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B", "C")

	require.NoError(t, h.engine.PairRemote(2))
	require.NoError(t, h.engine.UnregisterPlayers([]int{1}))
	assert.Equal(t, PairStatus{Status: pairing.StatusPairing}, h.engine.PairStatus())

	h.press(0x77, 0)
	assert.Equal(t, "C", h.engine.slots[1].PanelText())
	assert.Equal(t, uint32(0x77), h.engine.slots[1].RemoteID)
	assert.False(t, h.engine.slots[2].Registered)
	assert.False(t, h.engine.slots[2].HasRemote())
}

func TestPairEndIgnoresEmptySlot(t *testing.T) {
	h := newHarness(t)
	h.register(t, "A", "B")

	h.engine.pairing.Track(0x55, pairing.Target(3))
	h.engine.pairEnd(pairing.Target(3), 0x55)
	assert.False(t, h.engine.slots[3].HasRemote())

	// the dropped remote can still be paired elsewhere
	h.pair(t, 0, 0x55)
}

func TestWinnerPanelBlinks(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")
	require.NoError(t, h.engine.GameForceScore(1, 3))

	require.NoError(t, h.engine.GameEnd("ABORTED", -1))
	assert.Equal(t, map[int]bool{1: true}, h.display.blinking)

	require.NoError(t, h.engine.GameBegin())
	assert.Empty(t, h.display.blinking)

	require.NoError(t, h.engine.GameEnd("ABORTED", 0))
	assert.Equal(t, map[int]bool{0: true}, h.display.blinking)
	require.NoError(t, h.engine.UnregisterPlayers([]int{1}))
	assert.Empty(t, h.display.blinking)
}

func TestMatrixPower(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.engine.MatrixPoweredOff())

	h.engine.MatrixPowerOff()
	assert.True(t, h.engine.MatrixPoweredOff())

	h.engine.MatrixPowerOn()
	assert.False(t, h.engine.MatrixPoweredOff())
}

func TestPauseHoldsScoringWindow(t *testing.T) {
	h := newHarness(t)
	h.startGame(t, "A", "B")

	h.press(0x10, 0)
	require.Equal(t, "SCORED", h.engine.Snapshot().Players[0].ServeState)
	require.NoError(t, h.engine.GamePause())

	h.clock.Advance(10 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 0, h.engine.ActivePlayer())
	assert.Zero(t, h.sink.count(persist.EventServeAdvance))

	require.NoError(t, h.engine.GameUnpause())
	h.clock.Advance(2 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 0, h.engine.ActivePlayer())

	h.clock.Advance(2 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 1, h.engine.ActivePlayer())
	assert.Equal(t, 1, h.sink.count(persist.EventServeAdvance))
}

package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chainball/scoreboard/go/internal/game"
	"github.com/stretchr/testify/mock"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) RegisterPlayers(players map[int]game.PlayerText) error {
	return m.Called(players).Error(0)
}

func (m *MockEngine) UnregisterPlayers(pids []int) error {
	return m.Called(pids).Error(0)
}

func (m *MockEngine) GamePause() error   { return m.Called().Error(0) }
func (m *MockEngine) GameUnpause() error { return m.Called().Error(0) }
func (m *MockEngine) PairMaster() error  { return m.Called().Error(0) }
func (m *MockEngine) UnpairMaster() error {
	return m.Called().Error(0)
}

func (m *MockEngine) GameBeginWithUID(uid string) error {
	return m.Called(uid).Error(0)
}

func (m *MockEngine) MatrixPowerOff() { m.Called() }
func (m *MockEngine) MatrixPowerOn()  { m.Called() }

func (m *MockEngine) GameEnd(reason string, winner int) error {
	return m.Called(reason, winner).Error(0)
}

func (m *MockEngine) GamePassTurn(forceServe bool) error {
	return m.Called(forceServe).Error(0)
}

func (m *MockEngine) GameSetActivePlayer(pid int) error {
	return m.Called(pid).Error(0)
}

func (m *MockEngine) GameForceScore(pid int, value int) error {
	return m.Called(pid, value).Error(0)
}

func (m *MockEngine) ScoringEvent(pid int, gesture game.Gesture) error {
	return m.Called(pid, gesture).Error(0)
}

func (m *MockEngine) SetGameUID(uid string) {
	m.Called(uid)
}

func (m *MockEngine) PairRemote(pid int) error {
	return m.Called(pid).Error(0)
}

func (m *MockEngine) UnpairRemote(pid int) error {
	return m.Called(pid).Error(0)
}

func (m *MockEngine) PairStatus() game.PairStatus {
	return m.Called().Get(0).(game.PairStatus)
}

func (m *MockEngine) Snapshot() game.Status {
	return m.Called().Get(0).(game.Status)
}

type recordingInjector struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recordingInjector) Inject(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

type staticRemotes map[uint32]*uint8

func (s staticRemotes) Snapshot() map[uint32]*uint8 { return s }

// runTicks drains d until the test ends, standing in for the tick loop.
func runTicks(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Drain()
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
}

package game

import (
	"testing"

	"github.com/chainball/scoreboard/go/internal/persist"
	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// --- Remotes ---

type fakeRemotes struct {
	frames  []remote.RawFrame
	stopped bool
}

func (f *fakeRemotes) MessagePending() bool { return len(f.frames) > 0 }

func (f *fakeRemotes) ReceiveMessage() (remote.RawFrame, bool) {
	if len(f.frames) == 0 {
		return remote.RawFrame{}, false
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, true
}

func (f *fakeRemotes) FlushMessageQueue() int {
	n := len(f.frames)
	f.frames = nil
	return n
}

func (f *fakeRemotes) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeRemotes) push(id uint32, cmd remote.Command, data uint8) {
	payload := remote.Encode(remote.Message{RemoteID: id, Command: cmd, Data: data})
	f.frames = append(f.frames, remote.RawFrame{Payload: payload})
}

// --- Display ---

type fakeDisplay struct {
	scores   map[int]int
	turns    []int
	texts    map[int]string
	cleared  []int
	blinking map[int]bool
	stopped  bool
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{scores: map[int]int{}, texts: map[int]string{}, blinking: map[int]bool{}}
}

func (f *fakeDisplay) UpdateScore(player, score int) error {
	f.scores[player] = score
	return nil
}

func (f *fakeDisplay) SetTurn(player int) { f.turns = append(f.turns, player) }

func (f *fakeDisplay) SetPanelText(player int, text string) error {
	f.texts[player] = text
	return nil
}

func (f *fakeDisplay) UnregisterPlayer(player int) { f.cleared = append(f.cleared, player) }

func (f *fakeDisplay) BlinkStart(player int, _ bool) { f.blinking[player] = true }

func (f *fakeDisplay) BlinkStop(player int, _ bool) { delete(f.blinking, player) }

func (f *fakeDisplay) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeDisplay) lastTurn() int {
	return f.turns[len(f.turns)-1]
}

// --- Persistence ---

type eventSink struct {
	events []persist.Event
	docs   int
}

func (s *eventSink) SaveRecord(persist.Document)  { s.docs++ }
func (s *eventSink) SaveSeries(int)               {}
func (s *eventSink) PublishEvent(e persist.Event) { s.events = append(s.events, e) }

func (s *eventSink) count(t persist.EventType) int {
	n := 0
	for _, e := range s.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (s *eventSink) last(t persist.EventType) (persist.Event, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == t {
			return s.events[i], true
		}
	}
	return persist.Event{}, false
}

func (s *eventSink) types() []persist.EventType {
	out := make([]persist.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// --- SFX ---

type fakeSFX struct {
	played []string
}

func (f *fakeSFX) Play(name string) error {
	f.played = append(f.played, name)
	return nil
}

func (f *fakeSFX) Handle() {}

// --- Harness ---

type harness struct {
	engine  *Engine
	clock   *clockwork.FakeClock
	remotes *fakeRemotes
	display *fakeDisplay
	sink    *eventSink
	journal *persist.Journal
	sfx     *fakeSFX
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SFX = map[SFXEvent]string{SFXGameEnd: "end.wav", SFXCowout: "cow.wav"}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &harness{
		clock:   clockwork.NewFakeClock(),
		remotes: &fakeRemotes{},
		display: newFakeDisplay(),
		sink:    &eventSink{},
		sfx:     &fakeSFX{},
	}
	h.journal = persist.NewJournal(h.clock, 0, h.sink)
	h.engine = NewEngine(cfg, Deps{
		Clock:    h.clock,
		Remotes:  h.remotes,
		Decoder:  remote.NewDecoder(remote.NewMemoryRegistry()),
		Display:  h.display,
		Recorder: h.journal,
		SFX:      h.sfx,
	})
	return h
}

func (h *harness) press(id uint32, button uint8) {
	h.remotes.push(id, remote.CommandBtnPress, button)
	h.engine.Tick()
}

func (h *harness) register(t *testing.T, names ...string) {
	t.Helper()
	players := make(map[int]PlayerText, len(names))
	for pid, name := range names {
		text, err := NewPlayerText(name, "")
		require.NoError(t, err)
		players[pid] = text
	}
	require.NoError(t, h.engine.RegisterPlayers(players))
}

func (h *harness) pair(t *testing.T, pid int, id uint32) {
	t.Helper()
	require.NoError(t, h.engine.PairRemote(pid))
	h.press(id, 0)
	require.Equal(t, id, h.engine.slots[pid].RemoteID)
}

// startGame registers one player per name, pairs remote 0x10+pid to each
// and begins the game.
func (h *harness) startGame(t *testing.T, names ...string) {
	t.Helper()
	h.register(t, names...)
	for pid := range names {
		h.pair(t, pid, uint32(0x10+pid))
	}
	require.NoError(t, h.engine.GameBegin())
}

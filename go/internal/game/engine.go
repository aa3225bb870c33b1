package game

import (
	"fmt"
	"time"

	"github.com/chainball/scoreboard/go/internal/announce"
	"github.com/chainball/scoreboard/go/internal/pairing"
	"github.com/chainball/scoreboard/go/internal/persist"
	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/chainball/scoreboard/go/internal/score"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const MaxPlayers = 4

// RemoteSource is the receive side of the radio link.
type RemoteSource interface {
	MessagePending() bool
	ReceiveMessage() (remote.RawFrame, bool)
	FlushMessageQueue() int
	Stop() error
}

type FrameDecoder interface {
	Decode(frame remote.RawFrame) (remote.Message, error)
}

// ScoreDisplay is the send side of the score panel link.
type ScoreDisplay interface {
	score.DisplaySink
	BlinkStart(player int, fast bool)
	BlinkStop(player int, resume bool)
	Stop() error
}

// Recorder receives the game record events. persist.Journal implements it.
type Recorder interface {
	NewRecord(players map[int]persist.PlayerData, uid string) string
	StartGame(remaining time.Duration)
	EndGame(reason string, winner int, running, remaining time.Duration)
	PauseUnpause()
	UpdateScore(player, score int, forced bool, gameTime time.Duration)
	ForceScore(player, score int, gameTime time.Duration)
	LogEvent(t persist.EventType, desc map[string]any)
	AssignUserID(uid string)
}

// Deps are the collaborators of the engine. Remotes and Matrix may be nil.
type Deps struct {
	Clock    clockwork.Clock
	Remotes  RemoteSource
	Decoder  FrameDecoder
	Display  ScoreDisplay
	Matrix   announce.Matrix
	Recorder Recorder
	SFX      SFXPlayer
}

// Engine is the game state machine. All methods must be called from the
// goroutine that drives Tick; the engine holds no locks.
type Engine struct {
	config   Config
	clock    clockwork.Clock
	remotes  RemoteSource
	decoder  FrameDecoder
	display  ScoreDisplay
	recorder Recorder
	sfx      SFXPlayer

	pairing    *pairing.Coordinator
	mainTimer  *announce.Scheduler
	panelTimer *announce.Scheduler
	slots      [MaxPlayers]*score.Slot

	masterRemote      uint32
	ongoing           bool
	paused            bool
	pausedAt          time.Time
	activePlayer      int
	gameID            string
	nextUID           string
	faultCount        int
	scoreDisplayEnded bool
	// panel of the last winner while it blinks, -1 otherwise
	blinking          int
}

func NewEngine(cfg Config, deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.SFX == nil {
		deps.SFX = LogSFXPlayer{}
	}

	e := &Engine{
		config:            cfg,
		clock:             deps.Clock,
		remotes:           deps.Remotes,
		decoder:           deps.Decoder,
		display:           deps.Display,
		recorder:          deps.Recorder,
		sfx:               deps.SFX,
		activePlayer:      -1,
		scoreDisplayEnded: true,
		blinking:          -1,
	}

	e.pairing = pairing.NewCoordinator(e.clock, e.pairEnd, e.pairFail)
	e.mainTimer = announce.NewScheduler("main", e.clock, deps.Matrix, e, e.gameTimeout)
	// the panel countdown is cosmetic and never ends the game
	e.panelTimer = announce.NewScheduler("panels", e.clock, nil, e, nil)

	for pid := range e.slots {
		e.slots[pid] = score.NewSlot(pid, cfg.ServeTimeout, e.clock, e.display, e.autoAdvance)
	}
	return e
}

// PostInit shows the start-up banner, then the idle countdown.
func (e *Engine) PostInit() {
	e.mainTimer.Announce(announce.Announcement{
		Heading: "CHAIN",
		Text:    "BALL",
		OnDone:  func() { e.mainTimer.Setup(e.config.GameDuration) },
	}, 10*time.Second)
}

// Tick runs one pass of the game loop.
func (e *Engine) Tick() {
	if e.ongoing && !e.paused {
		for _, s := range e.slots {
			s.HandleServe()
		}
	}

	e.sfx.Handle()
	e.pairing.Handle()
	e.mainTimer.Handle()
	e.panelTimer.Handle()

	if e.ongoing {
		e.checkCowouts()
		if e.checkWinner() {
			return
		}
	}

	e.receiveRemote()

	if e.ongoing && e.scoreDisplayEnded {
		e.announceScores()
	}
}

func (e *Engine) checkCowouts() {
	for _, s := range e.slots {
		if !s.Registered || !s.MarkCowout() {
			continue
		}
		log.Info().Str("component", "engine").Int("player", s.PID).Msg("player is out of the game")
		e.mainTimer.Announce(announce.Announcement{Heading: s.PanelText(), Text: "COWOUT"}, 4*time.Second)
		e.playSFX(SFXCowout)
		e.recorder.LogEvent(persist.EventCowout, e.playerDesc(s.PID))
	}
}

// checkWinner ends the game when one player is left standing or somebody
// reached the top score. It reports whether the game ended.
func (e *Engine) checkWinner() bool {
	if e.eliminatedCount() >= e.playerCount()-1 {
		log.Info().Str("component", "engine").Msg("only one player remains, ending game")
		e.endGame("TIMEOUT", -1)
		return true
	}
	for _, s := range e.slots {
		if s.Registered && s.Score() == score.MaxScore {
			log.Info().Str("component", "engine").Int("player", s.PID).Msg("player has won the game")
			e.endGame("PLAYER_WON", s.PID)
			return true
		}
	}
	return false
}

func (e *Engine) announceScores() {
	count := e.playerCount()
	e.scoreDisplayEnded = false
	for pid := 0; pid < count; pid++ {
		a := announce.Announcement{Text: fmt.Sprintf("%+d", e.slots[pid].Score())}
		if pid == count-1 {
			a.OnDone = func() { e.scoreDisplayEnded = true }
		}
		e.panelTimer.PlayerAnnounce(a, e.config.ScoreAnnounceInterval, pid)
	}
}

// announceMain queues a main matrix announcement that brings the idle
// countdown back once it is done and no game is running.
func (e *Engine) announceMain(a announce.Announcement, d time.Duration) {
	done := a.OnDone
	a.OnDone = func() {
		if !e.ongoing {
			e.mainTimer.Setup(e.config.GameDuration)
		}
		if done != nil {
			done()
		}
	}
	e.mainTimer.Announce(a, d)
}

func (e *Engine) ShowPanelText(player int, text string) {
	if s, ok := e.slot(player); ok {
		s.ShowText(text)
	}
}

func (e *Engine) RestorePanelText(player int) {
	if s, ok := e.slot(player); ok {
		s.RestoreText()
	}
}

// MatrixPowerOff blanks the matrix until MatrixPowerOn.
func (e *Engine) MatrixPowerOff() {
	log.Info().Str("component", "engine").Msg("matrix powered off")
	e.mainTimer.PowerOff()
}

func (e *Engine) MatrixPowerOn() {
	log.Info().Str("component", "engine").Msg("matrix powered on")
	e.mainTimer.PowerOn()
	e.mainTimer.Refresh()
}

func (e *Engine) MatrixPoweredOff() bool {
	return e.mainTimer.PoweredOff()
}

func (e *Engine) stopWinnerBlink() {
	if e.blinking < 0 {
		return
	}
	e.display.BlinkStop(e.blinking, true)
	e.blinking = -1
}

func (e *Engine) playSFX(event SFXEvent) {
	name, ok := e.config.SFX[event]
	if !ok {
		log.Debug().Str("component", "engine").Str("event", string(event)).Msg("no sound effect mapped")
		return
	}
	if err := e.sfx.Play(name); err != nil {
		log.Warn().Err(err).Str("component", "engine").Str("fx", name).Msg("sfx play error")
	}
}

func (e *Engine) slot(pid int) (*score.Slot, bool) {
	if pid < 0 || pid >= MaxPlayers {
		return nil, false
	}
	return e.slots[pid], true
}

func (e *Engine) registeredSlot(pid int) (*score.Slot, error) {
	s, ok := e.slot(pid)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPlayer, pid)
	}
	if !s.Registered {
		return nil, fmt.Errorf("%w: %d", ErrPlayerNotRegistered, pid)
	}
	return s, nil
}

func (e *Engine) playerCount() int {
	n := 0
	for _, s := range e.slots {
		if s.Registered {
			n++
		}
	}
	return n
}

func (e *Engine) eliminatedCount() int {
	n := 0
	for _, s := range e.slots {
		if s.Registered && s.Score() == score.MinScore {
			n++
		}
	}
	return n
}

// highScore returns the registered player with the best score. Ties go to
// the lowest slot index.
func (e *Engine) highScore() int {
	winner, best := 0, 0
	found := false
	for _, s := range e.slots {
		if !s.Registered {
			continue
		}
		if !found || s.Score() > best {
			winner, best, found = s.PID, s.Score(), true
		}
	}
	return winner
}

func (e *Engine) Ongoing() bool { return e.ongoing }
func (e *Engine) Paused() bool  { return e.paused }

// ActivePlayer is the serving player, or -1 when no game is running.
func (e *Engine) ActivePlayer() int {
	if !e.ongoing {
		return -1
	}
	return e.activePlayer
}

// RemainingTime is the time left on the game clock while a game runs.
func (e *Engine) RemainingTime() (time.Duration, bool) {
	if !e.ongoing {
		return 0, false
	}
	return e.mainTimer.Remaining(), true
}

func (e *Engine) RunningTime() (time.Duration, bool) {
	remaining, ok := e.RemainingTime()
	if !ok {
		return 0, false
	}
	return e.config.GameDuration - remaining, true
}

func (e *Engine) gameTime() time.Duration {
	running, _ := e.RunningTime()
	return running
}

func (e *Engine) playerDesc(pid int) map[string]any {
	return map[string]any{
		"player": pid,
		"gtime":  int(e.gameTime() / time.Second),
	}
}

// Shutdown stops both hardware links.
func (e *Engine) Shutdown() {
	log.Debug().Str("component", "engine").Msg("shutting down game engine")
	if err := e.display.Stop(); err != nil {
		log.Warn().Err(err).Str("component", "engine").Msg("failed to stop score display link")
	}
	if e.remotes != nil {
		if err := e.remotes.Stop(); err != nil {
			log.Warn().Err(err).Str("component", "engine").Msg("failed to stop remote link")
		}
	}
	log.Debug().Str("component", "engine").Msg("game engine shutdown complete")
}

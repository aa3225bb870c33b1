package announce

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MainTarget addresses the countdown matrix rather than a player panel.
const MainTarget = -1

const (
	cycle        = time.Second
	headingWidth = 6
	charAdvance  = 5
)

type Announcement struct {
	Heading string
	Text    string
	OnDone  func()
}

// PanelWriter shows and restores text on a player panel.
type PanelWriter interface {
	ShowPanelText(player int, text string)
	RestorePanelText(player int)
}

type queued struct {
	announcement Announcement
	duration     time.Duration
	target       int
}

// Scheduler owns one display surface: a countdown timer plus a FIFO of
// announcements. It is driven from the engine tick and is not safe for
// concurrent use.
type Scheduler struct {
	name     string
	clock    clockwork.Clock
	matrix   Matrix
	panels   PanelWriter
	onExpire func()

	started    bool
	stopped    bool
	paused     bool
	poweredOff bool
	end        time.Time
	frozen     time.Duration
	lastCycle  time.Time

	active      *queued
	activeStart time.Time
	queue       []queued
}

// NewScheduler builds a scheduler. matrix may be nil for a surface without
// a countdown display, onExpire may be nil for a timer that never ends the
// game.
func NewScheduler(name string, clock clockwork.Clock, matrix Matrix, panels PanelWriter, onExpire func()) *Scheduler {
	return &Scheduler{
		name:      name,
		clock:     clock,
		matrix:    matrix,
		panels:    panels,
		onExpire:  onExpire,
		stopped:   true,
		lastCycle: clock.Now(),
	}
}

func (s *Scheduler) Start(d time.Duration) {
	now := s.clock.Now()
	s.lastCycle = now
	s.end = now.Add(d)
	s.started = true
	s.stopped = false
	s.paused = false
	s.frozen = 0
}

func (s *Scheduler) Pause() {
	if s.stopped || s.paused {
		return
	}
	s.frozen = s.left(s.clock.Now())
	s.paused = true
}

func (s *Scheduler) Unpause() {
	if !s.paused {
		return
	}
	s.end = s.clock.Now().Add(s.frozen)
	s.paused = false
}

func (s *Scheduler) Stop(clear bool) {
	if !s.stopped && !s.paused {
		s.frozen = s.left(s.clock.Now())
	}
	s.stopped = true
	s.paused = false
	if clear && s.matrix != nil {
		if err := s.matrix.Clear(); err != nil {
			s.warn(err, "failed to clear matrix")
		}
	}
}

// Setup draws d as the idle countdown without starting the timer.
func (s *Scheduler) Setup(d time.Duration) {
	s.draw(d)
}

func (s *Scheduler) Running() bool {
	return s.started && !s.stopped
}

func (s *Scheduler) Paused() bool {
	return s.paused
}

// Remaining is the time left on the countdown. A paused or stopped timer
// reports the value it froze at.
func (s *Scheduler) Remaining() time.Duration {
	if s.stopped || s.paused {
		return s.frozen
	}
	return s.left(s.clock.Now())
}

func (s *Scheduler) left(now time.Time) time.Duration {
	if d := s.end.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (s *Scheduler) Announce(a Announcement, d time.Duration) {
	s.enqueue(a, d, MainTarget)
}

func (s *Scheduler) PlayerAnnounce(a Announcement, d time.Duration, player int) {
	s.enqueue(a, d, player)
}

func (s *Scheduler) enqueue(a Announcement, d time.Duration, target int) {
	log.Debug().
		Str("component", "announce").
		Str("surface", s.name).
		Int("target", target).
		Str("heading", a.Heading).
		Str("text", a.Text).
		Msg("queuing announcement")
	s.queue = append(s.queue, queued{announcement: a, duration: d, target: target})
}

// Pending is the number of queued announcements, not counting the one on
// screen.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

func (s *Scheduler) Announcing() bool {
	return s.active != nil
}

func (s *Scheduler) PowerOff() {
	if s.matrix != nil {
		_ = s.matrix.BeginScreen()
		_ = s.matrix.EndScreen()
	}
	s.poweredOff = true
}

func (s *Scheduler) PowerOn() {
	s.poweredOff = false
}

func (s *Scheduler) PoweredOff() bool {
	return s.poweredOff
}

// Refresh redraws the countdown immediately.
func (s *Scheduler) Refresh() {
	if s.poweredOff {
		return
	}
	s.draw(s.Remaining())
}

// Handle runs one scheduler step. Expiry is checked on every call; the
// rest runs at most once per second.
func (s *Scheduler) Handle() {
	now := s.clock.Now()

	if s.started && !s.stopped && !s.paused && !now.Before(s.end) {
		s.expire()
		return
	}

	if now.Sub(s.lastCycle) < cycle {
		return
	}
	s.lastCycle = now

	if s.active != nil {
		s.render(s.active)
		if now.Sub(s.activeStart) >= s.active.duration {
			s.finish()
		}
		return
	}

	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.active = &next
		s.activeStart = now
		log.Debug().
			Str("component", "announce").
			Str("surface", s.name).
			Str("heading", next.announcement.Heading).
			Str("text", next.announcement.Text).
			Msg("announcing")
		s.render(s.active)
		return
	}

	if !s.started || s.stopped || s.paused || s.poweredOff {
		return
	}
	s.Refresh()
}

func (s *Scheduler) expire() {
	s.stopped = true
	s.frozen = 0
	log.Info().Str("component", "announce").Str("surface", s.name).Msg("countdown expired")
	if !s.poweredOff {
		s.draw(0)
	}
	if s.onExpire != nil {
		s.onExpire()
	}
}

func (s *Scheduler) finish() {
	done := s.active
	s.active = nil
	s.activeStart = time.Time{}
	if done.target != MainTarget && s.panels != nil {
		s.panels.RestorePanelText(done.target)
	}
	if done.announcement.OnDone != nil {
		done.announcement.OnDone()
	}
}

func (s *Scheduler) render(q *queued) {
	if q.target != MainTarget {
		if s.panels != nil {
			s.panels.ShowPanelText(q.target, q.announcement.Text)
		}
		return
	}
	if s.matrix == nil || s.poweredOff {
		return
	}
	s.drawAnnouncement(q.announcement)
}

func (s *Scheduler) drawAnnouncement(a Announcement) {
	if err := s.matrix.BeginScreen(); err != nil {
		s.warn(err, "failed to draw announcement")
		return
	}
	s.drawLine(center(a.Heading), 0, White)
	if a.Text != "" {
		s.drawLine(center(a.Text), 8, Cyan)
	}
	if err := s.matrix.EndScreen(); err != nil {
		s.warn(err, "failed to draw announcement")
	}
}

func (s *Scheduler) drawLine(text string, y int, c Color) {
	x := 1
	for _, ch := range text {
		if err := s.matrix.PutText(c, x, y, string(ch), 1, false); err != nil {
			s.warn(err, "failed to draw announcement")
			return
		}
		x += charAdvance
	}
}

func (s *Scheduler) draw(remaining time.Duration) {
	if s.matrix == nil {
		return
	}

	total := int(remaining / time.Second)
	minutes, seconds := total/60, total%60
	c := CountdownColor(remaining)
	minStr := fmt.Sprintf("%02d", minutes)
	secStr := fmt.Sprintf("%02d", seconds)

	steps := []func() error{
		func() error { return s.matrix.PutText(c, 0, 1, minStr[0:1], 2, true) },
		func() error { return s.matrix.PutText(c, 11, 1, minStr[1:2], 2, false) },
		func() error { return s.matrix.PutText(Red, 21, 0, secStr, 1, false) },
		s.matrix.EndScreen,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.warn(err, "failed to draw countdown")
			return
		}
	}
}

func (s *Scheduler) warn(err error, msg string) {
	log.Warn().Err(err).Str("component", "announce").Str("surface", s.name).Msg(msg)
}

// CountdownColor fades the minute digits from green through yellow to red
// as the game runs out.
func CountdownColor(remaining time.Duration) Color {
	total := int(remaining / time.Second)
	var r, g int
	if total/60 > 9 {
		r = int(0.425 * float64(1200-total))
		g = 255
	} else {
		r = 255
		g = int(0.425 * float64(total))
	}
	return Color{R: clamp(r), G: clamp(g)}
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

func center(text string) string {
	if len(text) >= headingWidth {
		return text[:headingWidth]
	}
	pad := headingWidth - len(text)
	left := pad / 2
	out := make([]byte, 0, headingWidth)
	for i := 0; i < left; i++ {
		out = append(out, ' ')
	}
	out = append(out, text...)
	for len(out) < headingWidth {
		out = append(out, ' ')
	}
	return string(out)
}

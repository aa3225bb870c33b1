package score

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DisplaySink receives display side effects from player slots. Calls only
// enqueue and never block on the serial line.
type DisplaySink interface {
	UpdateScore(player, score int) error
	SetTurn(player int)
	SetPanelText(player int, text string) error
	UnregisterPlayer(player int)
}

type LinkConfig struct {
	WriteInterval time.Duration
}

func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		WriteInterval: 10 * time.Millisecond,
	}
}

// Link owns the serial line to the score panels. Producers enqueue commands
// from the engine tick and the link goroutine writes them out.
type Link struct {
	w      io.Writer
	clock  clockwork.Clock
	config LinkConfig

	queueMu sync.Mutex
	queue   []Command

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewLink(w io.Writer, clock clockwork.Clock, cfg LinkConfig) *Link {
	if cfg.WriteInterval <= 0 {
		cfg.WriteInterval = DefaultLinkConfig().WriteInterval
	}
	return &Link{
		w:        w,
		clock:    clock,
		config:   cfg,
	}
}

func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("score link already running")
	}
	l.running = true
	l.stopChan = make(chan struct{})
	stop := l.stopChan
	l.mu.Unlock()

	// panels start blank with no turn indicator
	l.write(clearCommand(AllPlayers))
	l.write(turnCommand(NoPlayer))

	l.wg.Add(1)
	go l.run(ctx, stop)

	log.Info().
		Str("component", "score_link").
		Dur("write_interval", l.config.WriteInterval).
		Msg("score link started")
	return nil
}

// Stop joins the writer goroutine. Commands still queued are dropped.
func (l *Link) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	stop := l.stopChan
	l.mu.Unlock()

	close(stop)
	l.wg.Wait()

	if dropped := l.pending(); dropped > 0 {
		log.Debug().Str("component", "score_link").Int("dropped", dropped).Msg("unflushed display commands")
	}
	log.Info().Str("component", "score_link").Msg("score link stopped")
	return nil
}

func (l *Link) run(ctx context.Context, stop <-chan struct{}) {
	defer l.wg.Done()

	ticker := l.clock.NewTicker(l.config.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.Chan():
			l.flush()
		}
	}
}

// flush writes every queued command in FIFO order.
func (l *Link) flush() {
	l.queueMu.Lock()
	cmds := l.queue
	l.queue = nil
	l.queueMu.Unlock()

	for _, cmd := range cmds {
		l.write(cmd)
	}
}

func (l *Link) write(cmd Command) {
	if _, err := l.w.Write(cmd.Frame()); err != nil {
		log.Error().
			Err(err).
			Str("component", "score_link").
			Stringer("command", cmd).
			Msg("serial write failed")
	}
}

func (l *Link) enqueue(cmds ...Command) {
	l.queueMu.Lock()
	l.queue = append(l.queue, cmds...)
	l.queueMu.Unlock()
}

func (l *Link) pending() int {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	return len(l.queue)
}

func (l *Link) UpdateScore(player, score int) error {
	cmd, err := scoreCommand(uint8(player), score)
	if err != nil {
		return err
	}
	l.enqueue(cmd)
	return nil
}

func (l *Link) SetTurn(player int) {
	l.enqueue(turnCommand(uint8(player)))
}

func (l *Link) SetPanelText(player int, text string) error {
	mode, err := TextModeFor(text)
	if err != nil {
		return err
	}
	l.enqueue(modeCommand(uint8(player), mode), dataCommand(uint8(player), text))
	return nil
}

func (l *Link) UnregisterPlayer(player int) {
	l.enqueue(clearCommand(uint8(player)))
}

func (l *Link) BlinkStart(player int, fast bool) {
	flags := byte(BlinkEnable)
	if fast {
		flags |= BlinkFast
	}
	l.enqueue(blinkCommand(uint8(player), flags))
}

// BlinkStop ends blinking; resume restores the panel content shown before.
func (l *Link) BlinkStop(player int, resume bool) {
	var flags byte
	if resume {
		flags |= BlinkResume
	}
	l.enqueue(blinkCommand(uint8(player), flags))
}

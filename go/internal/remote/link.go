package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RawFrame is a payload as it came off the radio, stamped on receipt.
type RawFrame struct {
	Payload    []byte
	ReceivedAt time.Time
}

// Radio is the transceiver seam. Poll returns every payload received since
// the previous call with the transceiver header byte already removed.
type Radio interface {
	Init() error
	Poll() ([][]byte, error)
	Close() error
}

type LinkConfig struct {
	PollInterval time.Duration
}

func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		PollInterval: 100 * time.Millisecond,
	}
}

// Link polls a Radio on its own goroutine and queues frames for the engine,
// which drains them without blocking.
type Link struct {
	radio  Radio
	clock  clockwork.Clock
	config LinkConfig

	queueMu sync.Mutex
	queue   []RawFrame

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewLink(radio Radio, clock clockwork.Clock, cfg LinkConfig) *Link {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultLinkConfig().PollInterval
	}
	return &Link{
		radio:    radio,
		clock:    clock,
		config:   cfg,
	}
}

// Start initializes the radio and launches the polling goroutine. A radio
// that cannot be initialized is a startup failure.
func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("remote link already running")
	}
	if err := l.radio.Init(); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("initialize radio: %w", err)
	}
	l.running = true
	l.stopChan = make(chan struct{})
	stop := l.stopChan
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(ctx, stop)

	log.Info().
		Str("component", "remote_link").
		Dur("poll_interval", l.config.PollInterval).
		Msg("remote link started")
	return nil
}

// Stop asks the polling goroutine to exit, waits for it and closes the
// radio. Calling Stop on a link that is not running is a no-op.
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

	if err := l.radio.Close(); err != nil {
		return fmt.Errorf("close radio: %w", err)
	}

	log.Info().Str("component", "remote_link").Msg("remote link stopped")
	return nil
}

func (l *Link) run(ctx context.Context, stop <-chan struct{}) {
	defer l.wg.Done()

	ticker := l.clock.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.Chan():
			l.poll()
		}
	}
}

func (l *Link) poll() {
	payloads, err := l.radio.Poll()
	if err != nil {
		log.Error().Err(err).Str("component", "remote_link").Msg("radio poll failed")
		return
	}
	if len(payloads) == 0 {
		return
	}

	now := l.clock.Now()
	l.queueMu.Lock()
	for _, p := range payloads {
		l.queue = append(l.queue, RawFrame{Payload: p, ReceivedAt: now})
	}
	l.queueMu.Unlock()

	log.Debug().
		Str("component", "remote_link").
		Int("count", len(payloads)).
		Msg("received payloads")
}

func (l *Link) MessagePending() bool {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	return len(l.queue) > 0
}

// ReceiveMessage pops the oldest queued frame. ok is false when the queue
// is empty.
func (l *Link) ReceiveMessage() (RawFrame, bool) {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	if len(l.queue) == 0 {
		return RawFrame{}, false
	}
	frame := l.queue[0]
	l.queue[0] = RawFrame{}
	l.queue = l.queue[1:]
	return frame, true
}

// FlushMessageQueue discards every queued frame and returns how many were
// dropped.
func (l *Link) FlushMessageQueue() int {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	n := len(l.queue)
	l.queue = nil
	return n
}

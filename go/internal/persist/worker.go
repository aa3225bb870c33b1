package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Store persists game records and the series counter.
type Store interface {
	SaveRecord(ctx context.Context, doc Document) error
	SaveSeries(ctx context.Context, series int) error
	LoadSeries(ctx context.Context) (int, error)
}

// Publisher fans game events out to listeners.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type WorkerConfig struct {
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
	OpTimeout  time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		QueueSize:  256,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		OpTimeout:  5 * time.Second,
	}
}

type job struct {
	doc    *Document
	series *int
	event  *Event
}

// Worker moves journal snapshots off the tick goroutine. Enqueueing never
// blocks: when the queue is full the job is dropped with a warning.
type Worker struct {
	store      Store
	publishers []Publisher
	clock      clockwork.Clock
	config     WorkerConfig
	jobs       chan job

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(store Store, publishers []Publisher, clock clockwork.Clock, cfg WorkerConfig) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultWorkerConfig().QueueSize
	}
	return &Worker{
		store:      store,
		publishers: publishers,
		clock:      clock,
		config:     cfg,
		jobs:       make(chan job, cfg.QueueSize),
	}
}

func (w *Worker) SaveRecord(doc Document) {
	w.submit(job{doc: &doc})
}

func (w *Worker) SaveSeries(series int) {
	w.submit(job{series: &series})
}

func (w *Worker) PublishEvent(event Event) {
	if len(w.publishers) == 0 {
		return
	}
	w.submit(job{event: &event})
}

func (w *Worker) submit(j job) {
	select {
	case w.jobs <- j:
	default:
		log.Warn().Str("component", "persist").Msg("persistence queue full, dropping job")
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("persistence worker already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	stop := w.stopChan
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx, stop)

	log.Info().
		Str("component", "persist").
		Int("queue_size", w.config.QueueSize).
		Int("publishers", len(w.publishers)).
		Msg("persistence worker started")
	return nil
}

// Stop drains whatever is already queued and waits for the goroutine.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stop := w.stopChan
	w.mu.Unlock()

	close(stop)
	w.wg.Wait()

	log.Info().Str("component", "persist").Msg("persistence worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context, stop <-chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			w.drain(context.Background())
			return
		case <-stop:
			w.drain(context.Background())
			return
		case j := <-w.jobs:
			w.process(ctx, j)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case j := <-w.jobs:
			w.process(ctx, j)
		default:
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	switch {
	case j.doc != nil:
		err := w.withRetry(ctx, func(ctx context.Context) error {
			return w.store.SaveRecord(ctx, *j.doc)
		})
		if err != nil {
			log.Error().Err(err).Str("component", "persist").Str("game_id", j.doc.ID).Msg("failed to save game record")
		}
	case j.series != nil:
		err := w.withRetry(ctx, func(ctx context.Context) error {
			return w.store.SaveSeries(ctx, *j.series)
		})
		if err != nil {
			log.Error().Err(err).Str("component", "persist").Int("series", *j.series).Msg("failed to save game series")
		}
	case j.event != nil:
		for _, p := range w.publishers {
			err := w.withRetry(ctx, func(ctx context.Context) error {
				return p.Publish(ctx, *j.event)
			})
			if err != nil {
				log.Error().
					Err(err).
					Str("component", "persist").
					Str("event_id", j.event.ID.String()).
					Str("event_type", string(j.event.Type)).
					Msg("failed to publish event")
			}
		}
	}
}

func (w *Worker) withRetry(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		opCtx := ctx
		cancel := func() {}
		if w.config.OpTimeout > 0 {
			opCtx, cancel = context.WithTimeout(ctx, w.config.OpTimeout)
		}
		err := op(opCtx)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("component", "persist").
			Int("attempt", attempt+1).
			Msg("persistence operation failed, retrying")
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

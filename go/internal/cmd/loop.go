package main

import (
	"context"
	"time"

	"github.com/chainball/scoreboard/go/internal/control"
	"github.com/jonboulle/clockwork"
)

const tickInterval = 10 * time.Millisecond

type ticker interface {
	Tick()
}

// runLoop is the only goroutine that touches the engine. Control calls are
// run between ticks; the dispatcher is closed when ctx ends.
func runLoop(ctx context.Context, clock clockwork.Clock, dispatcher *control.Dispatcher, engine ticker) {
	t := clock.NewTicker(tickInterval)
	defer t.Stop()
	defer dispatcher.Close()

	for {
		select {
		case <-ctx.Done():
			dispatcher.Drain()
			return
		case <-t.Chan():
			dispatcher.Drain()
			engine.Tick()
		}
	}
}

package control

import (
	"context"
	"errors"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

type call struct {
	fn   func()
	done chan struct{}
}

// Dispatcher hands closures from request goroutines to the tick goroutine,
// which runs them between ticks with Drain. The engine is only touched
// from inside those closures.
type Dispatcher struct {
	calls  chan call
	closed chan struct{}
}

func NewDispatcher(size int) *Dispatcher {
	return &Dispatcher{
		calls:  make(chan call, size),
		closed: make(chan struct{}),
	}
}

// Do queues fn and blocks until the tick goroutine has run it. When ctx
// ends first fn may still run later; its results must not be read then.
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case d.calls <- c:
	case <-d.closed:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-c.done:
		return nil
	case <-d.closed:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs every queued call and returns how many ran.
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		select {
		case c := <-d.calls:
			c.fn()
			close(c.done)
			n++
		default:
			return n
		}
	}
}

// Close makes pending and future Do calls fail. Only the tick goroutine
// should call it, after its last Drain.
func (d *Dispatcher) Close() {
	close(d.closed)
}

// Package gpioirq turns pin interrupts into output toggles: the interrupt
// handler only raises a coalescing signal, and a worker goroutine performs
// one toggle per wakeup.
package gpioirq

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"

	"eventnode-go/rtos"
	"eventnode-go/services/hal/halcore"
)

// Toggler is the output the worker acts on (gpio_dout.Device).
type Toggler interface {
	Toggle() (bool, error)
}

// State of the worker loop.
type State uint32

const (
	StateIdle State = iota
	StateActing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActing:
		return "acting"
	default:
		return "stopped"
	}
}

type Worker struct {
	sig   *rtos.Signal
	out   Toggler
	log   *slog.Logger
	yield func()

	state   atomic.Uint32
	wakeups atomic.Uint32
	toggles atomic.Uint32
	skipped atomic.Uint32
	irqs    atomic.Uint32 // handler invocations, counted in interrupt context
}

type Option func(*Worker)

func WithLogger(l *slog.Logger) Option { return func(w *Worker) { w.log = l } }

// WithYield replaces the post-notify yield (runtime.Gosched by default).
func WithYield(f func()) Option { return func(w *Worker) { w.yield = f } }

func New(out Toggler, opts ...Option) *Worker {
	w := &Worker{
		sig:   rtos.NewSignal(),
		out:   out,
		log:   slog.Default(),
		yield: runtime.Gosched,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Handler returns the interrupt handler. It does two atomic stores and a
// non-blocking send, then yields if the worker was made runnable.
func (w *Worker) Handler() func() {
	return func() {
		w.irqs.Add(1)
		if w.sig.Notify(1) && w.yield != nil {
			w.yield()
		}
	}
}

// Register installs the handler on pin for edge and returns a cancel func.
// EdgeNone registers nothing.
func (w *Worker) Register(pin halcore.IRQPin, edge halcore.Edge) (func(), error) {
	if edge == halcore.EdgeNone {
		return func() {}, nil
	}
	if err := pin.ConfigureInput(halcore.PullUp); err != nil {
		return nil, err
	}
	if err := pin.SetIRQ(edge, w.Handler()); err != nil {
		return nil, err
	}
	w.log.Info("irq:registered", "pin", pin.Number(), "edge", edge.String())
	return func() { _ = pin.ClearIRQ() }, nil
}

// Run waits for signals and toggles once per wakeup until ctx ends.
func (w *Worker) Run(ctx context.Context) {
	defer w.state.Store(uint32(StateStopped))
	for {
		w.state.Store(uint32(StateIdle))
		if _, ok := w.sig.WaitContext(ctx); !ok {
			return
		}
		w.state.Store(uint32(StateActing))
		w.wakeups.Add(1)
		on, err := w.out.Toggle()
		if err != nil {
			w.skipped.Add(1)
			w.log.Debug("irq:toggle-skipped", "err", err)
			continue
		}
		w.toggles.Add(1)
		w.log.Info("irq:toggled", "on", on)
	}
}

func (w *Worker) State() State       { return State(w.state.Load()) }
func (w *Worker) Wakeups() uint32    { return w.wakeups.Load() }
func (w *Worker) Toggles() uint32    { return w.toggles.Load() }
func (w *Worker) Skipped() uint32    { return w.skipped.Load() }
func (w *Worker) Interrupts() uint32 { return w.irqs.Load() }

package link

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"eventnode-go/bus"
	"eventnode-go/types"
	"eventnode-go/x/timex"
)

// Connector is the link-layer collaborator: it starts an association attempt
// and later reports the outcome through Tracker.Handle.
type Connector interface {
	BeginConnection() error
}

// Reader is the read-only view other components get.
type Reader interface {
	State() State
	Changed() <-chan struct{}
}

// Tracker owns the process-wide link state. Handle is the only writer;
// readers need one atomic load.
type Tracker struct {
	connector Connector
	log       *slog.Logger
	conn      *bus.Connection

	state atomic.Uint32

	wmu     sync.Mutex // serialises writers
	changed atomic.Pointer[chan struct{}]
}

type TrackerOption func(*Tracker)

func WithLogger(l *slog.Logger) TrackerOption     { return func(t *Tracker) { t.log = l } }
func WithBus(conn *bus.Connection) TrackerOption { return func(t *Tracker) { t.conn = conn } }

func NewTracker(connector Connector, opts ...TrackerOption) *Tracker {
	t := &Tracker{connector: connector, log: slog.Default()}
	for _, o := range opts {
		o(t)
	}
	t.log = t.log.With("component", "link")
	ch := make(chan struct{})
	t.changed.Store(&ch)
	t.publish(Transition{From: Disconnected, To: Disconnected})
	return t
}

// State returns the current state.
func (t *Tracker) State() State { return State(t.state.Load()) }

// Changed returns a channel closed at the next transition.
func (t *Tracker) Changed() <-chan struct{} { return *t.changed.Load() }

// Handle applies a link-layer event. For a start out of Disconnected it also
// issues the connect request; if that request is rejected the tracker falls
// back to Disconnected so the supervisor retries later, and the returned
// Transition is that fallback.
func (t *Tracker) Handle(ev Event) Transition {
	tr := t.apply(ev)
	if !tr.Connect {
		return tr
	}
	if err := t.connector.BeginConnection(); err != nil {
		t.log.Warn("link:connect-rejected", "err", err)
		return t.apply(EventLost)
	}
	return tr
}

func (t *Tracker) apply(ev Event) Transition {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	from := t.State()
	to, applied, connect := next(from, ev)
	tr := Transition{Event: ev, From: from, To: to, Applied: applied, Connect: connect}
	if !applied {
		if ev == EventAddressAcquired {
			t.log.Warn("link:stale-event", "event", ev.String(), "state", from.String())
		} else {
			t.log.Debug("link:ignored", "event", ev.String(), "state", from.String())
		}
		return tr
	}
	if to != from {
		t.state.Store(uint32(to))
		fresh := make(chan struct{})
		old := t.changed.Swap(&fresh)
		close(*old)
	}
	t.log.Info("link:transition", "event", ev.String(), "from", from.String(), "to", to.String())
	t.publish(tr)
	return tr
}

func (t *Tracker) publish(tr Transition) {
	if t.conn == nil {
		return
	}
	ev := ""
	if tr.Event != 0 {
		ev = tr.Event.String()
	}
	t.conn.Publish(t.conn.NewMessage(
		bus.T("net", "link", "state"),
		types.LinkStatus{State: tr.To.String(), From: tr.From.String(), Event: ev, TSms: timex.NowMs()},
		true,
	))
}

// WaitFor blocks until the state equals want or ctx ends.
func (t *Tracker) WaitFor(ctx context.Context, want State) error {
	for {
		ch := t.Changed()
		if t.State() == want {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

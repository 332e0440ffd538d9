package link

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrRejected is returned by SimLink.BeginConnection when told to refuse.
var ErrRejected = errors.New("link: connect request rejected")

// SimLink is a host stand-in for the link layer. Each accepted connect
// request reports address-acquired after ConnectDelay, unless the link was
// dropped or another request superseded it.
type SimLink struct {
	ConnectDelay time.Duration

	mu      sync.Mutex
	handle  func(Event) Transition
	gen     uint64
	reject  bool
	offline bool

	requests atomic.Uint32
}

func NewSimLink(delay time.Duration) *SimLink { return &SimLink{ConnectDelay: delay} }

// Attach wires the event sink, normally Tracker.Handle.
func (l *SimLink) Attach(handle func(Event) Transition) {
	l.mu.Lock()
	l.handle = handle
	l.mu.Unlock()
}

// BeginConnection implements Connector.
func (l *SimLink) BeginConnection() error {
	l.requests.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reject {
		return ErrRejected
	}
	l.gen++
	gen := l.gen
	time.AfterFunc(l.ConnectDelay, func() {
		l.mu.Lock()
		h := l.handle
		ok := gen == l.gen && !l.offline
		l.mu.Unlock()
		if ok && h != nil {
			h(EventAddressAcquired)
		}
	})
	return nil
}

// Start emits the link-layer started event.
func (l *SimLink) Start() { l.emit(EventStart) }

// Drop emits a lost event and cancels pending connects. While offline is set,
// later connect requests never complete.
func (l *SimLink) Drop(offline bool) {
	l.mu.Lock()
	l.gen++
	l.offline = offline
	l.mu.Unlock()
	l.emit(EventLost)
}

// Restore lets subsequent connect requests complete again.
func (l *SimLink) Restore() {
	l.mu.Lock()
	l.offline = false
	l.mu.Unlock()
}

// Reject makes BeginConnection fail while set.
func (l *SimLink) Reject(v bool) {
	l.mu.Lock()
	l.reject = v
	l.mu.Unlock()
}

// Requests counts BeginConnection calls.
func (l *SimLink) Requests() uint32 { return l.requests.Load() }

func (l *SimLink) emit(ev Event) {
	l.mu.Lock()
	h := l.handle
	l.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// Package link tracks network association state and keeps it moving back
// towards Connected.
//
// State machine (only explicit events move it):
//
//	Disconnected --start-->            Connecting  (connect request issued)
//	Connecting   --start-->            Connecting  (no second request)
//	Connecting   --address-acquired--> Connected
//	any          --lost-->             Disconnected
//
// address-acquired outside Connecting is stale and discarded.
package link

// State is the link association state.
type State uint32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Event is a link-layer notification.
type Event uint8

const (
	EventStart Event = iota + 1
	EventLost
	EventAddressAcquired
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventLost:
		return "lost"
	case EventAddressAcquired:
		return "address-acquired"
	default:
		return "unknown"
	}
}

// Transition is the outcome of handling one event.
type Transition struct {
	Event   Event
	From    State
	To      State
	Applied bool // false when the event was ignored
	Connect bool // a connect request was issued
}

// next is the pure transition table.
func next(from State, ev Event) (to State, applied, connect bool) {
	switch ev {
	case EventStart:
		switch from {
		case Disconnected:
			return Connecting, true, true
		case Connecting:
			return Connecting, false, false
		}
	case EventLost:
		return Disconnected, from != Disconnected, false
	case EventAddressAcquired:
		if from == Connecting {
			return Connected, true, false
		}
	}
	return from, false, false
}

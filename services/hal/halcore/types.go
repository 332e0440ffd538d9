// Package halcore defines the peripheral interfaces the core calls but never
// implements: pins, interrupts and PWM channels.
package halcore

import "errors"

var (
	// ErrUnknownPin is returned by factories for pins the board lacks.
	ErrUnknownPin = errors.New("unknown pin")
	// ErrUnsupported is returned when a peripheral cannot do what was asked.
	ErrUnsupported = errors.New("unsupported")
)

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// ParseEdge is the inverse of Edge.String; unknown names map to EdgeNone.
func ParseEdge(s string) Edge {
	switch s {
	case "rising":
		return EdgeRising
	case "falling":
		return EdgeFalling
	case "both":
		return EdgeBoth
	default:
		return EdgeNone
	}
}

// IRQPin extends GPIOPin with interrupts. The handler runs in interrupt
// context: it must not block, allocate or log.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// ---- PWM ----

// PWM is one PWM channel. Duty values run 0..MaxDuty, where MaxDuty follows
// the configured resolution.
type PWM interface {
	Configure(freqHz uint32, resolutionBits uint8) error
	SetDuty(value uint32) error
	MaxDuty() uint32
	Channel() int
}

// ---- Factories ----

// PinFactory supplies GPIO pins by board number.
type PinFactory interface {
	Pin(n int) (IRQPin, error)
}

// PWMFactory supplies PWM channels bound to a pin.
type PWMFactory interface {
	PWM(channel, pin int) (PWM, error)
}

// Package sim provides host-side peripherals: pins that can raise simulated
// interrupts and PWM channels that record their duty history.
package sim

import (
	"errors"
	"sync"
	"time"

	"eventnode-go/services/hal/halcore"
	"eventnode-go/x/mathx"
)

// ErrInjected is returned by peripherals told to fail configuration.
var ErrInjected = errors.New("sim: injected configuration failure")

// ----------------------------- GPIO ------------------------------------------

// Pin implements halcore.IRQPin.
type Pin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	output  bool
	irqEdge halcore.Edge
	irqFunc func()
	writes  int

	// FailConfigure makes ConfigureInput/ConfigureOutput fail.
	FailConfigure bool
}

func NewPin(n int) *Pin { return &Pin{number: n} }

func (p *Pin) ConfigureInput(_ halcore.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailConfigure {
		return ErrInjected
	}
	p.output = false
	return nil
}

func (p *Pin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailConfigure {
		return ErrInjected
	}
	p.output = true
	p.level = initial
	return nil
}

func (p *Pin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.writes++
	p.mu.Unlock()
}

func (p *Pin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *Pin) Number() int { return p.number }

// Writes counts Set calls since creation.
func (p *Pin) Writes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writes
}

// IsOutput reports whether the pin was configured as an output.
func (p *Pin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.output
}

func (p *Pin) SetIRQ(edge halcore.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *Pin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = halcore.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// Drive changes the input level from outside, raising the interrupt when the
// transition matches the configured edge. The handler runs on the caller's
// goroutine, standing in for interrupt context.
func (p *Pin) Drive(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, old, level)
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

// Pulse drives a full low-high-low pulse (one rising and one falling edge).
func (p *Pin) Pulse() {
	p.Drive(true)
	p.Drive(false)
}

func irqWanted(cfg halcore.Edge, old, now bool) bool {
	switch {
	case !old && now:
		return cfg == halcore.EdgeRising || cfg == halcore.EdgeBoth
	case old && !now:
		return cfg == halcore.EdgeFalling || cfg == halcore.EdgeBoth
	default:
		return false
	}
}

// ----------------------------- PWM -------------------------------------------

// DutyChange is one recorded SetDuty.
type DutyChange struct {
	At   time.Time
	Duty uint32
}

// PWM implements halcore.PWM and records every duty change.
type PWM struct {
	mu         sync.Mutex
	channel    int
	pin        int
	freqHz     uint32
	bits       uint8
	configured bool
	duty       uint32
	history    []DutyChange

	// FailConfigure makes Configure fail.
	FailConfigure bool
}

func NewPWM(channel, pin int) *PWM { return &PWM{channel: channel, pin: pin} }

func (p *PWM) Configure(freqHz uint32, resolutionBits uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailConfigure || freqHz == 0 || resolutionBits == 0 {
		return ErrInjected
	}
	p.freqHz, p.bits, p.configured = freqHz, resolutionBits, true
	return nil
}

func (p *PWM) SetDuty(v uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return halcore.ErrUnsupported
	}
	p.duty = v
	p.history = append(p.history, DutyChange{At: time.Now(), Duty: v})
	return nil
}

func (p *PWM) MaxDuty() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return mathx.MaxForBits(p.bits)
}

func (p *PWM) Channel() int { return p.channel }

func (p *PWM) Duty() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

// History returns a copy of all recorded duty changes.
func (p *PWM) History() []DutyChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]DutyChange(nil), p.history...)
}

// ----------------------------- Board -----------------------------------------

// Board hands out pins and PWM channels, creating them on first use.
// It implements halcore.PinFactory and halcore.PWMFactory.
type Board struct {
	mu   sync.Mutex
	max  int
	pins map[int]*Pin
	pwms map[int]*PWM
}

var (
	_ halcore.PinFactory = (*Board)(nil)
	_ halcore.PWMFactory = (*Board)(nil)
)

// NewBoard creates a board with pins 0..maxPin.
func NewBoard(maxPin int) *Board {
	return &Board{max: maxPin, pins: map[int]*Pin{}, pwms: map[int]*PWM{}}
}

func (b *Board) Pin(n int) (halcore.IRQPin, error) { return b.SimPin(n) }

// SimPin is Pin with the concrete type, for driving inputs.
func (b *Board) SimPin(n int) (*Pin, error) {
	if n < 0 || n > b.max {
		return nil, halcore.ErrUnknownPin
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pins[n]
	if !ok {
		p = NewPin(n)
		b.pins[n] = p
	}
	return p, nil
}

func (b *Board) PWM(channel, pin int) (halcore.PWM, error) { return b.SimPWM(channel, pin) }

func (b *Board) SimPWM(channel, pin int) (*PWM, error) {
	if pin < 0 || pin > b.max {
		return nil, halcore.ErrUnknownPin
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pwms[channel]
	if !ok {
		p = NewPWM(channel, pin)
		b.pwms[channel] = p
	}
	return p, nil
}

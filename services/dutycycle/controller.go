// Package dutycycle drives one PWM channel through a fixed two-phase cycle:
// duty D for T_on, then 0 for T_off, forever. Phase boundaries sit on an
// absolute schedule so the period does not drift. Nothing but shutdown
// interrupts a phase.
package dutycycle

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"eventnode-go/errcode"
	"eventnode-go/x/mathx"
	"eventnode-go/x/timex"
)

// Output is the PWM the controller owns (pwm_out.Device).
type Output interface {
	Configured() bool
	MaxDuty() uint32
	SetDuty(v uint32) error
}

// Pattern is the repeating schedule. Duty is an absolute duty value and is
// clamped to the output's full scale.
type Pattern struct {
	Duty uint32
	On   time.Duration
	Off  time.Duration
}

// Fraction is the share of each period spent at nonzero duty.
func (p Pattern) Fraction() float64 {
	if p.Duty == 0 {
		return 0
	}
	return mathx.Ratio(p.On, p.On+p.Off)
}

func (p Pattern) validate() error {
	if p.On <= 0 || p.Off < 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "dutycycle.new", Msg: "on must be > 0 and off >= 0"}
	}
	return nil
}

type Controller struct {
	out Output
	pat Pattern
	log *slog.Logger

	cycles  atomic.Uint32
	skipped atomic.Uint32
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

func New(out Output, pat Pattern, opts ...Option) (*Controller, error) {
	if err := pat.validate(); err != nil {
		return nil, err
	}
	c := &Controller{out: out, pat: pat, log: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "dutycycle")
	return c, nil
}

// Run cycles until ctx ends. With an unconfigured output the timeline still
// runs but no duty is ever written.
func (c *Controller) Run(ctx context.Context) {
	if !c.out.Configured() {
		c.log.Warn("duty:output-not-configured")
	}
	sched := timex.NewSchedule(time.Time{})
	for {
		c.write(c.pat.Duty)
		if !sched.Next(ctx, c.pat.On) {
			return
		}
		if c.pat.Off > 0 {
			c.write(0)
			if !sched.Next(ctx, c.pat.Off) {
				return
			}
		}
		c.cycles.Add(1)
	}
}

func (c *Controller) write(v uint32) {
	if !c.out.Configured() {
		c.skipped.Add(1)
		return
	}
	v = mathx.Clamp(v, 0, c.out.MaxDuty())
	if err := c.out.SetDuty(v); err != nil {
		c.skipped.Add(1)
		c.log.Warn("duty:write-failed", "duty", v, "err", err)
		return
	}
	c.log.Debug("duty:set", "duty", v)
}

// Cycles counts completed on/off periods.
func (c *Controller) Cycles() uint32 { return c.cycles.Load() }

// Skipped counts phase writes that did not reach the output.
func (c *Controller) Skipped() uint32 { return c.skipped.Load() }

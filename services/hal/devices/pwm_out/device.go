package pwm_out

import (
	"log/slog"
	"sync/atomic"

	"eventnode-go/bus"
	"eventnode-go/errcode"
	"eventnode-go/services/hal/halcore"
	"eventnode-go/types"
	"eventnode-go/x/mathx"
	"eventnode-go/x/timex"
)

type Params struct {
	Channel        int
	Pin            int
	FreqHz         uint32
	ResolutionBits uint8
	Name           string
}

// Device owns one PWM channel. Duty values are clamped to the channel's
// range; nothing is written after a failed Configure.
type Device struct {
	id         string
	p          Params
	pwm        halcore.PWM
	name       string
	max        uint32
	configured atomic.Bool
	duty       atomic.Uint32

	log  *slog.Logger
	conn *bus.Connection
}

type Option func(*Device)

func WithLogger(l *slog.Logger) Option     { return func(d *Device) { d.log = l } }
func WithBus(conn *bus.Connection) Option { return func(d *Device) { d.conn = conn } }

func New(id string, p Params, pwm halcore.PWM, opts ...Option) *Device {
	d := &Device{
		id:   id,
		p:    p,
		pwm:  pwm,
		name: p.Name,
		log:  slog.Default(),
	}
	if d.name == "" {
		d.name = id
	}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.With("device", d.id)
	return d
}

func (d *Device) ID() string { return d.id }

func (d *Device) Info() types.PWMInfo {
	return types.PWMInfo{Channel: d.p.Channel, Pin: d.p.Pin, FreqHz: d.p.FreqHz, ResolutionBits: d.p.ResolutionBits}
}

// Init configures frequency and resolution and drives duty 0.
func (d *Device) Init() error {
	if err := d.pwm.Configure(d.p.FreqHz, d.p.ResolutionBits); err != nil {
		d.configured.Store(false)
		d.log.Error("pwm:configure-failed", "channel", d.p.Channel, "freq_hz", d.p.FreqHz, "err", err)
		d.publishStatus(types.HealthDegraded, errcode.ConfigFailed)
		return &errcode.E{C: errcode.ConfigFailed, Op: "pwm_out.init", Err: err}
	}
	d.max = d.pwm.MaxDuty()
	d.configured.Store(true)
	d.log.Info("pwm:configured", "channel", d.p.Channel, "freq_hz", d.p.FreqHz, "max_duty", d.max)
	d.publishStatus(types.HealthUp, "")
	return d.SetDuty(0)
}

func (d *Device) Configured() bool { return d.configured.Load() }

// MaxDuty is the full-scale duty value (0 before a successful Init).
func (d *Device) MaxDuty() uint32 { return d.max }

// Duty returns the last duty written.
func (d *Device) Duty() uint32 { return d.duty.Load() }

// SetDuty writes v clamped to 0..MaxDuty.
func (d *Device) SetDuty(v uint32) error {
	if !d.configured.Load() {
		return errcode.NotConfigured
	}
	v = mathx.Clamp(v, 0, d.max)
	if err := d.pwm.SetDuty(v); err != nil {
		d.publishStatus(types.HealthDegraded, errcode.Error)
		return errcode.Wrap(errcode.Error, "pwm_out.set_duty", err)
	}
	d.duty.Store(v)
	if d.conn != nil {
		d.conn.Publish(d.conn.NewMessage(
			bus.T("hal", string(types.KindPWM), d.name, "value"),
			types.PWMValue{Duty: v, TSms: timex.NowMs()},
			true,
		))
	}
	return nil
}

func (d *Device) publishStatus(h types.Health, code errcode.Code) {
	if d.conn == nil {
		return
	}
	d.conn.Publish(d.conn.NewMessage(
		bus.T("hal", string(types.KindPWM), d.name, "status"),
		types.DeviceStatus{Health: h, TSms: timex.NowMs(), Error: string(code)},
		true,
	))
}

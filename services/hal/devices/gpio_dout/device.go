package gpio_dout

import (
	"log/slog"
	"sync/atomic"

	"eventnode-go/bus"
	"eventnode-go/errcode"
	"eventnode-go/services/hal/halcore"
	"eventnode-go/types"
	"eventnode-go/x/timex"
)

type Params struct {
	Pin       int
	ActiveLow bool
	Initial   bool
	Name      string
}

// Device is a single logical on/off output. Every write is guarded by the
// outcome of Init: after a failed configuration the pin is never touched.
type Device struct {
	id         string
	pin        halcore.GPIOPin
	activeLow  bool
	initial    bool
	name       string
	configured atomic.Bool

	log  *slog.Logger
	conn *bus.Connection
}

type Option func(*Device)

func WithLogger(l *slog.Logger) Option     { return func(d *Device) { d.log = l } }
func WithBus(conn *bus.Connection) Option { return func(d *Device) { d.conn = conn } }

func New(id string, p Params, pin halcore.GPIOPin, opts ...Option) *Device {
	d := &Device{
		id:        id,
		pin:       pin,
		activeLow: p.ActiveLow,
		initial:   p.Initial,
		name:      p.Name,
		log:       slog.Default(),
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

func (d *Device) Info() types.LEDInfo {
	return types.LEDInfo{Pin: d.pin.Number(), ActiveLow: d.activeLow}
}

// Init configures the pin as an output at the initial logical level. A failure
// is logged and reported; the device then stays inert.
func (d *Device) Init() error {
	level := d.initial
	if d.activeLow {
		level = !level
	}
	if err := d.pin.ConfigureOutput(level); err != nil {
		d.configured.Store(false)
		d.log.Error("gpio:configure-failed", "pin", d.pin.Number(), "err", err)
		d.publishStatus(types.HealthDegraded, errcode.ConfigFailed)
		return &errcode.E{C: errcode.ConfigFailed, Op: "gpio_dout.init", Err: err}
	}
	d.configured.Store(true)
	d.log.Info("gpio:configured", "pin", d.pin.Number(), "initial", d.initial)
	d.publishStatus(types.HealthUp, "")
	d.publishValue()
	return nil
}

func (d *Device) Configured() bool { return d.configured.Load() }

// Set writes a logical level.
func (d *Device) Set(on bool) error {
	if !d.configured.Load() {
		return errcode.NotConfigured
	}
	d.setLogical(on)
	d.publishValue()
	return nil
}

// Toggle reads the current level and writes its inverse: one read, one write.
func (d *Device) Toggle() (bool, error) {
	if !d.configured.Load() {
		return false, errcode.NotConfigured
	}
	next := !d.getLogical()
	d.setLogical(next)
	d.publishValue()
	return next, nil
}

// On reports the current logical level.
func (d *Device) On() bool { return d.getLogical() }

func (d *Device) setLogical(on bool) {
	level := on
	if d.activeLow {
		level = !level
	}
	d.pin.Set(level)
}

func (d *Device) getLogical() bool {
	level := d.pin.Get()
	if d.activeLow {
		level = !level
	}
	return level
}

func (d *Device) publishValue() {
	if d.conn == nil {
		return
	}
	d.conn.Publish(d.conn.NewMessage(
		bus.T("hal", string(types.KindLED), d.name, "value"),
		types.LEDValue{On: d.getLogical(), TSms: timex.NowMs()},
		true,
	))
}

func (d *Device) publishStatus(h types.Health, code errcode.Code) {
	if d.conn == nil {
		return
	}
	d.conn.Publish(d.conn.NewMessage(
		bus.T("hal", string(types.KindLED), d.name, "status"),
		types.DeviceStatus{Health: h, TSms: timex.NowMs(), Error: string(code)},
		true,
	))
}

// Package heartbeat blinks a status output on a fixed absolute period.
package heartbeat

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cast"

	"eventnode-go/bus"
	"eventnode-go/x/timex"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

const DefaultPeriod = 4 * time.Second

// Output is the pin being blinked (gpio_dout.Device).
type Output interface {
	Configured() bool
	Set(on bool) error
	Toggle() (bool, error)
}

type Service struct {
	out    Output
	period time.Duration
	conn   *bus.Connection
	log    *slog.Logger

	ticks   atomic.Uint32
	toggles atomic.Uint32
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithBus lets the service follow retained config/heartbeat updates
// ({"period_ms": N}).
func WithBus(conn *bus.Connection) Option { return func(s *Service) { s.conn = conn } }

func New(out Output, period time.Duration, opts ...Option) *Service {
	if period <= 0 {
		period = DefaultPeriod
	}
	s := &Service{out: out, period: period, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "heartbeat")
	return s
}

// Run drives the output low, then toggles it once per period until ctx ends.
// An output that failed configuration is never written; ticks are still
// counted and logged.
func (s *Service) Run(ctx context.Context) {
	var cfg <-chan *bus.Message
	if s.conn != nil {
		sub := s.conn.Subscribe(topicConfigHeartbeat)
		defer s.conn.Unsubscribe(sub)
		cfg = sub.Channel()
	}

	if s.out.Configured() {
		_ = s.out.Set(false)
	} else {
		s.log.Warn("heartbeat:output-not-configured")
	}

	sched := timex.NewSchedule(time.Time{})
	deadline := sched.Advance(s.period)
	tm := time.NewTimer(time.Until(deadline))
	defer tm.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat:stopping")
			return
		case <-tm.C:
			s.tick()
			deadline = sched.Advance(s.period)
		case msg, ok := <-cfg:
			if !ok {
				cfg = nil
				continue
			}
			p, ok := periodOf(msg.Payload)
			if !ok || p == s.period {
				continue
			}
			s.period = p
			s.log.Info("heartbeat:period", "period", p)
			sched = timex.NewSchedule(time.Time{})
			deadline = sched.Advance(p)
			if !tm.Stop() {
				select {
				case <-tm.C:
				default:
				}
			}
		}
		tm.Reset(time.Until(deadline))
	}
}

func (s *Service) tick() {
	n := s.ticks.Add(1)
	if !s.out.Configured() {
		s.log.Debug("heartbeat:tick", "n", n, "written", false)
		return
	}
	on, err := s.out.Toggle()
	if err != nil {
		s.log.Warn("heartbeat:toggle-failed", "err", err)
		return
	}
	s.toggles.Add(1)
	s.log.Debug("heartbeat:tick", "n", n, "on", on)
}

func periodOf(payload any) (time.Duration, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := m["period_ms"]
	if !ok {
		return 0, false
	}
	ms, err := cast.ToIntE(v)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

func (s *Service) Ticks() uint32   { return s.ticks.Load() }
func (s *Service) Toggles() uint32 { return s.toggles.Load() }

package link

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Supervisor re-initiates the connection whenever it finds the link
// Disconnected. It is level-triggered: a start while a request is already in
// flight is ignored by the tracker, so running it at any time is safe.
type Supervisor struct {
	t      *Tracker
	period time.Duration
	log    *slog.Logger

	attempts atomic.Uint32
}

func NewSupervisor(t *Tracker, period time.Duration, log *slog.Logger) *Supervisor {
	if period <= 0 {
		period = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{t: t, period: period, log: log.With("component", "reconnect")}
}

// Run checks once immediately, then every period, until ctx ends.
func (s *Supervisor) Run(ctx context.Context) {
	tick := time.NewTicker(s.period)
	defer tick.Stop()
	for {
		s.check()
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func (s *Supervisor) check() {
	if s.t.State() != Disconnected {
		return
	}
	n := s.attempts.Add(1)
	s.log.Info("reconnect:attempt", "n", n)
	s.t.Handle(EventStart)
}

// Attempts counts start requests issued by the supervisor.
func (s *Supervisor) Attempts() uint32 { return s.attempts.Load() }

package config

import (
	"context"
	"log/slog"

	"eventnode-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Service publishes each top-level section of a Config as a retained
// message on config/<section>, so components started later still see it.
type Service struct {
	Name string
	cfg  Config
	log  *slog.Logger
}

func NewService(cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{Name: serviceName, cfg: cfg, log: log.With("component", serviceName)}
}

// Publish pushes every section. Payloads are map[string]any (or scalars for
// top-level values); the link password is redacted.
func (s *Service) Publish(conn *bus.Connection) error {
	m, err := Sections(s.cfg.Redacted())
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	s.log.Info("config:published", "sections", len(m))
	return nil
}

// Start publishes in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Publish(conn); err != nil {
			s.log.Error("config:publish-failed", "err", err)
		}
	}()
}

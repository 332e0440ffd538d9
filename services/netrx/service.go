// Package netrx ingests datagrams on a fixed port while the link is up.
//
// One socket span is open at a time, bounded by the Connected state: the
// outer loop waits for Connected and opens a span, the inner loop reads with
// a bounded timeout so a link drop is noticed within one timeout, and the
// span is always closed before the outer loop looks again.
package netrx

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"eventnode-go/bus"
	"eventnode-go/errcode"
	"eventnode-go/services/link"
	"eventnode-go/types"
	"eventnode-go/x/timex"
)

type Config struct {
	Port          int
	RecvTimeout   time.Duration // bound on each receive wait
	MaxDatagram   int           // buffer size; the last byte is reserved
	ConnectedPoll time.Duration // fallback poll while waiting for Connected
	RetryBackoff  time.Duration // wait after a failed open
}

func DefaultConfig() Config {
	return Config{
		Port:          3358,
		RecvTimeout:   2 * time.Second,
		MaxDatagram:   512,
		ConnectedPoll: time.Second,
		RetryBackoff:  time.Second,
	}
}

// Close reasons reported on the span topic.
const (
	ReasonLinkDown  = "link_down"
	ReasonReadError = "read_error"
	ReasonShutdown  = "shutdown"
)

type Stats struct {
	SpansOpened  uint32
	SpansClosed  uint32
	Datagrams    uint32
	ReadErrors   uint32
	OpenFailures uint32
}

type Service struct {
	cfg   Config
	links link.Reader
	tr    Transport
	conn  *bus.Connection
	log   *slog.Logger

	running atomic.Bool
	open    atomic.Bool
	local   atomic.Pointer[net.UDPAddr]

	spansOpened  atomic.Uint32
	spansClosed  atomic.Uint32
	datagrams    atomic.Uint32
	readErrors   atomic.Uint32
	openFailures atomic.Uint32
}

// New creates the service. conn and log may be nil.
func New(cfg Config, links link.Reader, tr Transport, conn *bus.Connection, log *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = def.RecvTimeout
	}
	if cfg.MaxDatagram < 2 {
		cfg.MaxDatagram = def.MaxDatagram
	}
	if cfg.ConnectedPoll <= 0 {
		cfg.ConnectedPoll = def.ConnectedPoll
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, links: links, tr: tr, conn: conn, log: log.With("component", "netrx")}
}

// Run loops until ctx ends and then returns ctx.Err(). Only one Run may be
// active per Service.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return &errcode.E{C: errcode.InvalidParams, Op: "netrx.run", Msg: "already running"}
	}
	defer s.running.Store(false)
	buf := make([]byte, s.cfg.MaxDatagram)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.waitConnected(ctx); err != nil {
			return err
		}
		if err := s.serveSpan(ctx, buf); err != nil {
			if !timex.SleepUntil(ctx, time.Now().Add(s.cfg.RetryBackoff)) {
				return ctx.Err()
			}
		}
	}
}

// waitConnected wakes on every link transition, with a coarse poll as a
// fallback; it never spins.
func (s *Service) waitConnected(ctx context.Context) error {
	for {
		changed := s.links.Changed()
		if s.links.State() == link.Connected {
			return nil
		}
		t := time.NewTimer(s.cfg.ConnectedPoll)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-changed:
		case <-t.C:
		}
		t.Stop()
	}
}

// serveSpan owns one socket from open to close. It returns an error when the
// socket could not be opened or a read failed; the caller backs off before
// trying again. Link loss and shutdown return nil.
func (s *Service) serveSpan(ctx context.Context, buf []byte) error {
	pc, err := s.tr.Listen(s.cfg.Port)
	if err != nil {
		s.openFailures.Add(1)
		s.log.Warn("netrx:open-failed", "port", s.cfg.Port, "err", err)
		return err
	}
	id := uuid.NewString()
	if ua, ok := pc.LocalAddr().(*net.UDPAddr); ok {
		s.local.Store(ua)
	}
	s.open.Store(true)
	s.spansOpened.Add(1)
	s.log.Info("netrx:span-open", "span", id, "addr", pc.LocalAddr().String())
	s.publishSpan(id, true, "")

	reason := ReasonLinkDown
	defer func() {
		if err := pc.Close(); err != nil {
			s.log.Debug("netrx:close", "span", id, "err", err)
		}
		s.open.Store(false)
		s.local.Store(nil)
		s.spansClosed.Add(1)
		s.log.Info("netrx:span-closed", "span", id, "reason", reason)
		s.publishSpan(id, false, reason)
	}()

	for {
		if ctx.Err() != nil {
			reason = ReasonShutdown
			return nil
		}
		if s.links.State() != link.Connected {
			return nil
		}
		n, from, err := pc.ReadTimeout(buf[:len(buf)-1], s.cfg.RecvTimeout)
		if err != nil {
			if errcode.Is(err, errcode.Timeout) {
				continue
			}
			s.readErrors.Add(1)
			s.log.Warn("netrx:read-error", "span", id, "err", err)
			reason = ReasonReadError
			return errcode.Wrap(errcode.Transport, "netrx.read", err)
		}
		s.deliver(id, from, buf[:n])
	}
}

// deliver hands one payload on as text, cut at the first NUL as a C string
// reader would. Nothing is sent back.
func (s *Service) deliver(span string, from net.Addr, p []byte) {
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	s.datagrams.Add(1)
	d := types.Datagram{SpanID: span, Text: string(p), TSms: timex.NowMs()}
	if from != nil {
		d.From = from.String()
	}
	s.log.Info("netrx:datagram", "span", span, "from", d.From, "len", len(p))
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(bus.T("net", "udp", "rx"), d, false))
	}
}

func (s *Service) publishSpan(id string, open bool, reason string) {
	if s.conn == nil {
		return
	}
	s.conn.Publish(s.conn.NewMessage(
		bus.T("net", "udp", "span"),
		types.SpanStatus{SpanID: id, Open: open, Port: s.cfg.Port, Reason: reason, TSms: timex.NowMs()},
		true,
	))
}

// SpanOpen reports whether a socket span is currently open.
func (s *Service) SpanOpen() bool { return s.open.Load() }

// LocalAddr is the bound address of the open span, or nil.
func (s *Service) LocalAddr() *net.UDPAddr { return s.local.Load() }

func (s *Service) Stats() Stats {
	return Stats{
		SpansOpened:  s.spansOpened.Load(),
		SpansClosed:  s.spansClosed.Load(),
		Datagrams:    s.datagrams.Load(),
		ReadErrors:   s.readErrors.Load(),
		OpenFailures: s.openFailures.Load(),
	}
}

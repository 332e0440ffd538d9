// Package counter is a producer/consumer pair joined by a bounded queue.
// The producer blocks when the queue is full; nothing is dropped.
package counter

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"eventnode-go/bus"
	"eventnode-go/rtos"
	"eventnode-go/types"
	"eventnode-go/x/timex"
)

const (
	DefaultCapacity = 10
	DefaultPeriod   = time.Second
)

var topicValue = bus.T("app", "counter", "value")

// NewQueue returns the work queue shared by a Producer and a Consumer.
func NewQueue(capacity int) *rtos.Queue[int] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return rtos.NewQueue[int](capacity)
}

// Producer sends 0, 1, 2, ... waiting Period after each send.
type Producer struct {
	q      *rtos.Queue[int]
	period time.Duration
	log    *slog.Logger
	sent   atomic.Uint32
}

func NewProducer(q *rtos.Queue[int], period time.Duration, log *slog.Logger) *Producer {
	if period <= 0 {
		period = DefaultPeriod
	}
	if log == nil {
		log = slog.Default()
	}
	return &Producer{q: q, period: period, log: log.With("component", "producer")}
}

func (p *Producer) Run(ctx context.Context) {
	for n := 0; ; n++ {
		if err := p.q.SendContext(ctx, n); err != nil {
			return
		}
		p.sent.Add(1)
		if !timex.SleepUntil(ctx, time.Now().Add(p.period)) {
			return
		}
	}
}

func (p *Producer) Sent() uint32 { return p.sent.Load() }

// Consumer receives values in order, logs them and republishes them on
// app/counter/value.
type Consumer struct {
	q    *rtos.Queue[int]
	conn *bus.Connection
	log  *slog.Logger
	last atomic.Int64
	recv atomic.Uint32
}

func NewConsumer(q *rtos.Queue[int], conn *bus.Connection, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	c := &Consumer{q: q, conn: conn, log: log.With("component", "consumer")}
	c.last.Store(-1)
	return c
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		v, err := c.q.ReceiveContext(ctx)
		if err != nil {
			return
		}
		c.recv.Add(1)
		c.last.Store(int64(v))
		c.log.Info("counter:recv", "val", v)
		if c.conn != nil {
			c.conn.Publish(c.conn.NewMessage(topicValue, types.CounterValue{Value: v, TSms: timex.NowMs()}, false))
		}
	}
}

// Last is the most recent value received, -1 before the first.
func (c *Consumer) Last() int        { return int(c.last.Load()) }
func (c *Consumer) Received() uint32 { return c.recv.Load() }

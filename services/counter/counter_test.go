package counter

import (
	"context"
	"testing"
	"time"

	"eventnode-go/bus"
	"eventnode-go/types"
)

func TestProducerConsumer_InOrder(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicValue)

	q := NewQueue(10)
	p := NewProducer(q, time.Millisecond, nil)
	c := NewConsumer(q, conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)
	go c.Run(ctx)

	for want := 0; want < 5; want++ {
		select {
		case m := <-sub.Channel():
			if v := m.Payload.(types.CounterValue).Value; v != want {
				t.Fatalf("value=%d want %d", v, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("value %d not published", want)
		}
	}
}

func TestProducer_BlocksWhenQueueFull(t *testing.T) {
	q := NewQueue(3)
	p := NewProducer(q, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	deadline := time.Now().Add(time.Second)
	for q.Len() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("queue never filled")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if p.Sent() != 3 {
		t.Fatalf("sent=%d with capacity 3", p.Sent())
	}

	// Draining one slot lets exactly the next value through, in order.
	if v, err := q.Receive(0); err != nil || v != 0 {
		t.Fatalf("v=%d err=%v", v, err)
	}
	deadline = time.Now().Add(time.Second)
	for p.Sent() < 4 {
		if time.Now().After(deadline) {
			t.Fatal("producer did not resume")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked producer ignored cancellation")
	}
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	q := NewQueue(0)
	if q.Cap() != DefaultCapacity {
		t.Fatalf("cap=%d", q.Cap())
	}
	c := NewConsumer(q, nil, nil)
	if c.Last() != -1 {
		t.Fatalf("last=%d", c.Last())
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()
	_ = q.Send(7, 0)
	deadline := time.Now().Add(time.Second)
	for c.Received() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("not received")
		}
		time.Sleep(time.Millisecond)
	}
	if c.Last() != 7 {
		t.Fatalf("last=%d", c.Last())
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

// bus/bus_test.go
package bus

import (
	"sort"
	"testing"
	"time"
)

const (
	TopicNet  = "net"
	TopicLink = "link"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(Topic{TopicNet, TopicLink})

	msg := conn.NewMessage(Topic{TopicNet, TopicLink}, "connected", false)
	conn.Publish(msg)

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "connected" {
			t.Errorf("expected payload 'connected', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	msg := conn.NewMessage(Topic{TopicNet, TopicLink}, "disconnected", true)
	conn.Publish(msg)

	sub := conn.Subscribe(Topic{TopicNet, TopicLink})

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "disconnected" {
			t.Errorf("expected retained payload 'disconnected', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained message")
	}
}

// -----------------------------------------------------------------------------
// Wildcards
// -----------------------------------------------------------------------------

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(Topic{"net", "+", "rx"})
	s2 := c.Subscribe(Topic{"net", "+", "+"})
	s3 := c.Subscribe(Topic{"net", "udp", "+"})
	sNo := c.Subscribe(Topic{"net", "+", "span"})

	c.Publish(b.NewMessage(Topic{"net", "udp", "rx"}, "m1", false))

	expectOneOf(t, s1, "m1")
	expectOneOf(t, s2, "m1")
	expectOneOf(t, s3, "m1")
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(Topic{"net", "link", "state"}, "m2", false))

	expectOneOf(t, s2, "m2")
	expectNoMessage(t, s1)
	expectNoMessage(t, s3)
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(Topic{"net", "rx"}, "m3", false))
	expectNoMessage(t, s1)
	expectNoMessage(t, s2)
	expectNoMessage(t, s3)
	expectNoMessage(t, sNo)
}

func TestWildcard_MultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sAHash := c.Subscribe(Topic{"net", "#"})
	sHash := c.Subscribe(Topic{"#"})
	sABHash := c.Subscribe(Topic{"net", "udp", "#"})
	sAExact := c.Subscribe(Topic{"net"})

	c.Publish(b.NewMessage(Topic{"net"}, "p1", false))
	expectOneOf(t, sAHash, "p1")
	expectOneOf(t, sHash, "p1")
	expectOneOf(t, sAExact, "p1")
	expectNoMessage(t, sABHash)

	c.Publish(b.NewMessage(Topic{"net", "udp"}, "p2", false))
	expectOneOf(t, sAHash, "p2")
	expectOneOf(t, sHash, "p2")
	expectOneOf(t, sABHash, "p2")
	expectNoMessage(t, sAExact)

	c.Publish(b.NewMessage(Topic{"net", "udp", "rx"}, "p3", false))
	expectOneOf(t, sAHash, "p3")
	expectOneOf(t, sHash, "p3")
	expectOneOf(t, sABHash, "p3")
	expectNoMessage(t, sAExact)
}

func TestWildcard_RetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(Topic{"net"}, "r0", true))
	c.Publish(b.NewMessage(Topic{"net", "udp"}, "r1", true))
	c.Publish(b.NewMessage(Topic{"net", "udp", "rx"}, "r2", true))
	c.Publish(b.NewMessage(Topic{"net", "link"}, "r3", true))

	sAll := c.Subscribe(Topic{"net", "#"})
	gotAll := drainPayloads(t, sAll, 4)
	assertUnorderedEqual(t, gotAll, []string{"r0", "r1", "r2", "r3"})

	sPlusHash := c.Subscribe(Topic{"net", "+", "#"})
	gotPH := drainPayloads(t, sPlusHash, 3)
	assertUnorderedEqual(t, gotPH, []string{"r1", "r2", "r3"})

	sPlus := c.Subscribe(Topic{"net", "+"})
	gotP := drainPayloads(t, sPlus, 2)
	assertUnorderedEqual(t, gotP, []string{"r1", "r3"})
}

func TestWildcard_RetainedClear(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(Topic{"net", "udp"}, "keep", true))
	c.Publish(b.NewMessage(Topic{"net", "state"}, "other", true))

	c.Publish(b.NewMessage(Topic{"net", "udp"}, nil, true))

	s := c.Subscribe(Topic{"net", "#"})
	got := drainPayloads(t, s, 1)

	if len(got) != 1 || got[0] != "other" {
		t.Fatalf("expected only 'other' after clear, got %v", got)
	}
}

func TestWildcard_NoMatchCases(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")

	s := c.Subscribe(Topic{"net", "+", "rx"})

	c.Publish(b.NewMessage(Topic{"net", "rx"}, "x", false))
	expectNoMessage(t, s)

	c.Publish(b.NewMessage(Topic{"net", "udp", "span"}, "y", false))
	expectNoMessage(t, s)
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if s, ok := m.Payload.(string); ok {
				out = append(out, s)
			} else {
				t.Fatalf("non-string payload in drain: %#v", m.Payload)
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("drainPayloads: expected %d messages, got %d (%v)", n, len(out), out)
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %q, want %q (got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func TestTopic_InvalidTokenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for non-comparable token, got none")
		}
	}()

	// []byte is not comparable, so T should panic
	_ = T([]byte{1, 2, 3})
}

func TestPublish_DropsOldestWhenFull(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("net", "udp", "rx"))

	for _, p := range []string{"d1", "d2", "d3"} {
		c.Publish(c.NewMessage(T("net", "udp", "rx"), p, false))
	}
	got := drainPayloads(t, s, 2)
	if got[0] != "d2" || got[1] != "d3" {
		t.Fatalf("expected newest two messages, got %v", got)
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("net"))
	s.Unsubscribe()
	if _, ok := <-s.Channel(); ok {
		t.Fatal("expected closed channel")
	}
	// Second unsubscribe and later publishes are harmless.
	c.Unsubscribe(s)
	c.Publish(c.NewMessage(T("net"), "x", false))
}

func TestTopic_Helpers(t *testing.T) {
	base := T("net", "udp")
	rx := base.Append("rx")
	if base.Len() != 2 || rx.Len() != 3 {
		t.Fatalf("len: base=%d rx=%d", base.Len(), rx.Len())
	}
	if rx.At(2) != "rx" || rx.At(5) != nil {
		t.Fatalf("At: %v %v", rx.At(2), rx.At(5))
	}
	if rx.String() != "net/udp/rx" {
		t.Fatalf("String: %q", rx.String())
	}
}

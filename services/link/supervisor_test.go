package link

import (
	"context"
	"testing"
	"time"
)

func waitState(t *testing.T, tr *Tracker, want State, within time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	if err := tr.WaitFor(ctx, want); err != nil {
		t.Fatalf("state %s not reached within %v (now %s)", want, within, tr.State())
	}
}

func TestSupervisor_ConnectsAndReconnects(t *testing.T) {
	sl := NewSimLink(5 * time.Millisecond)
	tr := NewTracker(sl)
	sl.Attach(tr.Handle)

	const period = 40 * time.Millisecond
	sup := NewSupervisor(tr, period, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	waitState(t, tr, Connected, time.Second)
	if sup.Attempts() != 1 {
		t.Fatalf("attempts=%d want 1", sup.Attempts())
	}

	lostAt := time.Now()
	sl.Drop(false)
	if tr.State() != Disconnected {
		t.Fatalf("state=%s after drop", tr.State())
	}
	for tr.State() == Disconnected {
		if d := time.Since(lostAt); d > period+50*time.Millisecond {
			t.Fatalf("supervisor did not react within one period (%v)", d)
		}
		time.Sleep(time.Millisecond)
	}
	waitState(t, tr, Connected, time.Second)
	if sup.Attempts() != 2 {
		t.Fatalf("attempts=%d want 2", sup.Attempts())
	}
}

func TestSupervisor_NoopWhileConnecting(t *testing.T) {
	sl := NewSimLink(time.Hour)
	tr := NewTracker(sl)
	sl.Attach(tr.Handle)
	sup := NewSupervisor(tr, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	sup.Run(ctx)

	if sl.Requests() != 1 || sup.Attempts() != 1 {
		t.Fatalf("requests=%d attempts=%d want 1/1", sl.Requests(), sup.Attempts())
	}
	if tr.State() != Connecting {
		t.Fatalf("state=%s", tr.State())
	}
}

func TestSupervisor_RetriesRejectedConnect(t *testing.T) {
	sl := NewSimLink(time.Millisecond)
	sl.Reject(true)
	tr := NewTracker(sl)
	sl.Attach(tr.Handle)
	sup := NewSupervisor(tr, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for sl.Requests() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("requests=%d, supervisor stopped retrying", sl.Requests())
		}
		time.Sleep(time.Millisecond)
	}
	sl.Reject(false)
	waitState(t, tr, Connected, time.Second)
}

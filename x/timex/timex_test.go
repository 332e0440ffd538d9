package timex

import (
	"context"
	"testing"
	"time"
)

func TestSchedule_NoCumulativeDrift(t *testing.T) {
	start := time.Now()
	s := NewSchedule(start)
	const period = 10 * time.Millisecond
	for i := 0; i < 10; i++ {
		// Work that eats most of the period must not push later phases out.
		time.Sleep(6 * time.Millisecond)
		if !s.Next(context.Background(), period) {
			t.Fatal("unexpected cancellation")
		}
	}
	if got, want := s.Anchor(), start.Add(10*period); !got.Equal(want) {
		t.Fatalf("anchor=%v want %v", got, want)
	}
	if late := time.Since(start.Add(10 * period)); late > 15*time.Millisecond {
		t.Fatalf("schedule drifted by %v", late)
	}
}

func TestSchedule_OverrunReturnsImmediately(t *testing.T) {
	s := NewSchedule(time.Now().Add(-time.Second))
	begin := time.Now()
	if !s.Next(context.Background(), 10*time.Millisecond) {
		t.Fatal("unexpected cancellation")
	}
	if time.Since(begin) > 5*time.Millisecond {
		t.Fatal("overrun schedule slept")
	}
}

func TestSleepUntil_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if SleepUntil(ctx, time.Now().Add(time.Hour)) {
		t.Fatal("expected false on cancelled context")
	}
}

func TestSchedule_AdvanceDoesNotSleep(t *testing.T) {
	start := time.Now()
	s := NewSchedule(start)
	if got := s.Advance(time.Hour); !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("anchor=%v", got)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("Advance slept")
	}
}

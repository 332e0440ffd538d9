package timex

import (
	"context"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Schedule is an absolute wake schedule: each Next advances a fixed anchor by
// the requested period and sleeps until that instant, so time spent working
// between calls does not accumulate as drift.
//
// If the anchor has already passed (the caller overran), Next returns at once
// and the anchor still advances by exactly one period.
type Schedule struct {
	anchor time.Time
}

// NewSchedule anchors a schedule at start (time.Now() when zero).
func NewSchedule(start time.Time) *Schedule {
	if start.IsZero() {
		start = time.Now()
	}
	return &Schedule{anchor: start}
}

// Anchor returns the current phase boundary.
func (s *Schedule) Anchor() time.Time { return s.anchor }

// Next advances the anchor by d and sleeps until it. It returns false if ctx
// ended first; the anchor is advanced either way.
func (s *Schedule) Next(ctx context.Context, d time.Duration) bool {
	return SleepUntil(ctx, s.Advance(d))
}

// Advance moves the anchor by d without sleeping and returns it, for callers
// that wait in their own select.
func (s *Schedule) Advance(d time.Duration) time.Time {
	s.anchor = s.anchor.Add(d)
	return s.anchor
}

// SleepUntil blocks until t or until ctx is done (returns false).
func SleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-tm.C:
		return true
	case <-ctx.Done():
		return false
	}
}

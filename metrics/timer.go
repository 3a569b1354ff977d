package metrics

import (
	"context"
	"time"
)

// TimerStart is the instant a request was received. It is stored in the
// request context by OnRequest and read, never removed, by OnResponse.
type TimerStart struct {
	at time.Time
}

type timerKey struct{}

// StartTimer returns a TimerStart for now. time.Now carries a monotonic
// reading, so elapsed times do not move with wall-clock adjustments.
func StartTimer(now time.Time) TimerStart {
	return TimerStart{at: now}
}

// Elapsed returns the seconds between the start and now, never below zero.
func (t TimerStart) Elapsed(now time.Time) float64 {
	d := now.Sub(t.at)
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

// WithTimerStart attaches t to ctx.
func WithTimerStart(ctx context.Context, t TimerStart) context.Context {
	return context.WithValue(ctx, timerKey{}, t)
}

// TimerStartFrom returns the TimerStart attached to ctx, if any.
func TimerStartFrom(ctx context.Context) (TimerStart, bool) {
	t, ok := ctx.Value(timerKey{}).(TimerStart)
	return t, ok
}

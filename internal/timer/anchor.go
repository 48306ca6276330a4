// Package timer derives workout and rest time from wall-clock anchors.
//
// Nothing here counts ticks. Elapsed and remaining seconds are pure functions
// of an anchor instant and "now", so a process that was suspended for any
// length of time reads the correct value the moment it looks again.
package timer

import (
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Clock supplies the current wall-clock instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Direction selects whether an anchored timer counts up without bound or
// down towards zero.
type Direction int

const (
	CountUp Direction = iota
	CountDown
)

// Anchored is a timer whose value is computed from Anchor rather than
// accumulated. CountUp is the workout stopwatch; CountDown with a Duration is
// the rest countdown and expires once nothing remains.
type Anchored struct {
	Direction Direction
	Anchor    time.Time
	Duration  int // seconds, CountDown only
}

// Stopwatch returns a CountUp timer anchored at anchor.
func Stopwatch(anchor time.Time) Anchored {
	return Anchored{Direction: CountUp, Anchor: anchor}
}

// Countdown returns a CountDown timer of durationSec seconds anchored at anchor.
func Countdown(anchor time.Time, durationSec int) Anchored {
	return Anchored{Direction: CountDown, Anchor: anchor, Duration: durationSec}
}

// Elapsed is the whole seconds since the anchor, never negative.
func (a Anchored) Elapsed(now time.Time) int {
	return Tick(a.Anchor, now)
}

// Remaining is the whole seconds left on a countdown, floored at zero.
// A CountUp timer has no remaining time.
func (a Anchored) Remaining(now time.Time) int {
	if a.Direction != CountDown {
		return 0
	}
	return max(0, a.Duration-a.Elapsed(now))
}

// Value is what a renderer shows: elapsed for CountUp, remaining for CountDown.
func (a Anchored) Value(now time.Time) int {
	if a.Direction == CountDown {
		return a.Remaining(now)
	}
	return a.Elapsed(now)
}

// Expired reports whether a countdown has reached zero.
func (a Anchored) Expired(now time.Time) bool {
	return a.Direction == CountDown && a.Remaining(now) <= 0
}

// StartClock returns the anchor that makes a stopwatch read priorElapsed at
// now, so resuming continues from the frozen value instead of zero.
func StartClock(now time.Time, priorElapsed int) time.Time {
	if priorElapsed < 0 {
		priorElapsed = 0
	}
	return now.Add(-time.Duration(priorElapsed) * time.Second)
}

// Tick is floor((now-anchor)/1s), clamped at zero for anchors in the future.
func Tick(anchor, now time.Time) int {
	d := now.Sub(anchor)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// StartWorkout anchors a paused stopwatch so it continues from its frozen
// elapsed value. A running stopwatch is returned unchanged.
func StartWorkout(t models.TimingState, now time.Time) models.TimingState {
	if t.IsRunning && t.StartAnchor != nil {
		return t
	}
	anchor := StartClock(now, t.ElapsedSeconds)
	return models.TimingState{IsRunning: true, ElapsedSeconds: max(0, t.ElapsedSeconds), StartAnchor: &anchor}
}

// StopWorkout freezes the stopwatch at its value for now and clears the anchor.
func StopWorkout(t models.TimingState, now time.Time) models.TimingState {
	t = RecomputeWorkout(t, now)
	return models.TimingState{ElapsedSeconds: t.ElapsedSeconds}
}

// SetWorkout overrides the elapsed value. A running stopwatch is re-anchored
// so later recomputation continues from seconds.
func SetWorkout(t models.TimingState, now time.Time, seconds int) models.TimingState {
	seconds = max(0, seconds)
	if !t.IsRunning {
		return models.TimingState{ElapsedSeconds: seconds}
	}
	anchor := StartClock(now, seconds)
	return models.TimingState{IsRunning: true, ElapsedSeconds: seconds, StartAnchor: &anchor}
}

// RecomputeWorkout refreshes ElapsedSeconds from the anchor. The result never
// drops below the previously computed value, so repeated recomputation is
// idempotent and monotonic even if the wall clock steps backwards.
func RecomputeWorkout(t models.TimingState, now time.Time) models.TimingState {
	if !t.IsRunning || t.StartAnchor == nil {
		t.IsRunning = false
		t.StartAnchor = nil
		return t
	}
	t.ElapsedSeconds = max(t.ElapsedSeconds, Stopwatch(*t.StartAnchor).Elapsed(now))
	return t
}

// StartRest begins a countdown of durationSec seconds. Non-positive durations
// leave the rest state untouched and report false.
func StartRest(r models.RestState, now time.Time, kind models.RestType, durationSec int) (models.RestState, bool) {
	if durationSec <= 0 {
		return r, false
	}
	anchor := now
	return models.RestState{IsResting: true, StartAnchor: &anchor, Duration: durationSec, Type: kind}, true
}

// RecomputeRest clears the rest state once its countdown has expired, or when
// it claims to be resting without an anchor or duration. The bool reports
// whether an active rest was finalized by this call.
func RecomputeRest(r models.RestState, now time.Time) (models.RestState, bool) {
	if !r.IsResting {
		return models.RestState{}, false
	}
	if r.StartAnchor == nil || r.Duration <= 0 {
		return models.RestState{}, true
	}
	if Countdown(*r.StartAnchor, r.Duration).Expired(now) {
		return models.RestState{}, true
	}
	return r, false
}

// RestRemaining is the whole seconds left on an active rest, or zero.
func RestRemaining(r models.RestState, now time.Time) int {
	if !r.IsResting || r.StartAnchor == nil {
		return 0
	}
	return Countdown(*r.StartAnchor, r.Duration).Value(now)
}

// RecomputeOnResume rebuilds both timers after the process regains the
// foreground or restarts. A stopwatch with a running anchor stays running and
// includes the suspended interval; a rest that ran out while suspended is
// finalized as if it had completed normally.
//
// A stopwatch that claims to be running without an anchor (state written
// before anchors were persisted) is re-anchored at its last elapsed value.
func RecomputeOnResume(t models.TimingState, r models.RestState, now time.Time) (models.TimingState, models.RestState) {
	if t.IsRunning && t.StartAnchor == nil {
		t = StartWorkout(models.TimingState{ElapsedSeconds: t.ElapsedSeconds}, now)
	}
	t = RecomputeWorkout(t, now)
	r, _ = RecomputeRest(r, now)
	return t, r
}

// Package session is the workout session state machine: one tagged-union
// Event type consumed by the pure Reduce function.
package session

import "github.com/claude/liftlog/internal/models"

// Event is one intent or signal applied to a State. The set of variants is
// closed; every variant is declared in this file.
type Event interface {
	event()
}

// Activate builds a fresh session from Template, prefilled from Last (the most
// recent completed session of the same template, or nil). Rest durations the
// template leaves unset resolve to the given defaults.
type Activate struct {
	Template            models.WorkoutTemplate
	Last                *models.CompletedSession
	DefaultSetRest      int
	DefaultExerciseRest int
}

// Start runs the workout stopwatch, continuing from its frozen value.
type Start struct{}

// Pause freezes the workout stopwatch.
type Pause struct{}

// MarkSet toggles one set's completion flag. Completing a set starts a rest.
type MarkSet struct {
	ExerciseID string
	Set        int
}

// AdjustReps moves one set's recorded reps by Delta, which must be +1 or -1.
type AdjustReps struct {
	ExerciseID string
	Set        int
	Delta      int
}

// StartRest begins a rest countdown of Duration seconds.
type StartRest struct {
	Type     models.RestType
	Duration int
}

// SkipRest clears any rest unconditionally.
type SkipRest struct{}

// SetElapsed overrides the workout stopwatch value.
type SetElapsed struct {
	Seconds int
}

// Reshape applies an edited template to the active session of the same id.
type Reshape struct {
	Template models.WorkoutTemplate
}

// Finish ends the session into a history record. Template is the stored
// template the session was started from, if it still exists; its exercises
// receive the session's name, sets and reps.
type Finish struct {
	Template *models.WorkoutTemplate
}

// Cancel ends the session without history.
type Cancel struct{}

// Tick is the once-per-second display refresh.
type Tick struct{}

// Resume re-derives both timers from their anchors after suspension.
type Resume struct{}

func (Activate) event()   {}
func (Start) event()      {}
func (Pause) event()      {}
func (MarkSet) event()    {}
func (AdjustReps) event() {}
func (StartRest) event()  {}
func (SkipRest) event()   {}
func (SetElapsed) event() {}
func (Reshape) event()    {}
func (Finish) event()     {}
func (Cancel) event()     {}
func (Tick) event()       {}
func (Resume) event()     {}

// Name is the event's label for logs and metrics.
func Name(ev Event) string {
	switch ev.(type) {
	case Activate:
		return "activate"
	case Start:
		return "start"
	case Pause:
		return "pause"
	case MarkSet:
		return "mark_set"
	case AdjustReps:
		return "adjust_reps"
	case StartRest:
		return "start_rest"
	case SkipRest:
		return "skip_rest"
	case SetElapsed:
		return "set_elapsed"
	case Reshape:
		return "reshape"
	case Finish:
		return "finish"
	case Cancel:
		return "cancel"
	case Tick:
		return "tick"
	case Resume:
		return "resume"
	default:
		return "unknown"
	}
}

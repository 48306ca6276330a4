package session

import (
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/timer"
)

// State is everything the state machine owns. Latched is the completion edge
// latch: it is set while every set of the session is complete.
type State struct {
	Active  *models.ActiveSession
	Timing  models.TimingState
	Rest    models.RestState
	Latched bool
}

// Phase derives the outer state from s.
func (s State) Phase() models.Phase {
	switch {
	case s.Active == nil:
		return models.PhaseIdle
	case s.Timing.IsRunning:
		return models.PhaseRunning
	default:
		return models.PhasePaused
	}
}

// Dirty marks which persisted entities an event touched.
type Dirty uint8

const (
	DirtyActive Dirty = 1 << iota
	DirtyTiming
	DirtyRest
	DirtyHistory
	DirtyTemplates
)

// Has reports whether all bits of f are set.
func (d Dirty) Has(f Dirty) bool { return d&f == f }

// Effects describes what Reduce did beyond returning the new state.
type Effects struct {
	From, To models.Phase
	Changed  Dirty

	// SessionComplete fires on the edge into "every set complete".
	SessionComplete bool
	// RestStarted is set when this event began a rest of kind RestType.
	RestStarted bool
	RestType    models.RestType
	// RestExpired is set when a countdown ran out on its own.
	RestExpired bool

	// Record is the history entry produced by Finish.
	Record *models.CompletedSession
	// Template is the folded template produced by Finish when it differs from the stored one.
	Template *models.WorkoutTemplate
}

// Reduce applies ev to s at now and returns the next state. It never mutates s
// and never fails: events that do not apply to the current state, or that
// name an unknown exercise or set, return s unchanged.
func Reduce(s State, ev Event, now time.Time) (State, Effects) {
	eff := Effects{From: s.Phase()}
	next := s

	switch e := ev.(type) {
	case Activate:
		active := Build(e.Template, e.Last, e.DefaultSetRest, e.DefaultExerciseRest)
		next = State{Active: &active}
		eff.Changed = DirtyActive | DirtyTiming | DirtyRest

	case Start:
		if s.Active == nil || s.Timing.IsRunning {
			break
		}
		next.Timing = timer.StartWorkout(s.Timing, now)
		eff.Changed = DirtyTiming

	case Pause:
		if s.Active == nil || !s.Timing.IsRunning {
			break
		}
		next.Timing = timer.StopWorkout(s.Timing, now)
		eff.Changed = DirtyTiming

	case MarkSet:
		next, eff = markSet(s, e, now, eff)

	case AdjustReps:
		if s.Active == nil || (e.Delta != 1 && e.Delta != -1) {
			break
		}
		i := s.Active.ExerciseIndex(e.ExerciseID)
		if i < 0 || e.Set < 0 || e.Set >= len(s.Active.Exercises[i].CompletedReps) {
			break
		}
		active := s.Active.Clone()
		reps := active.Exercises[i].CompletedReps
		reps[e.Set] = max(0, reps[e.Set]+e.Delta)
		next.Active = &active
		eff.Changed = DirtyActive

	case StartRest:
		kind := e.Type
		if !kind.Valid() {
			kind = models.RestNone
		}
		rest, ok := timer.StartRest(s.Rest, now, kind, e.Duration)
		if !ok {
			break
		}
		next.Rest = rest
		eff.Changed = DirtyRest
		eff.RestStarted, eff.RestType = true, kind

	case SkipRest:
		next.Rest = models.RestState{}
		eff.Changed = DirtyRest

	case SetElapsed:
		next.Timing = timer.SetWorkout(s.Timing, now, e.Seconds)
		eff.Changed = DirtyTiming

	case Reshape:
		if s.Active == nil || s.Active.TemplateID != e.Template.ID {
			break
		}
		active := reshape(*s.Active, e.Template)
		next.Active = &active
		eff.Changed = DirtyActive

	case Finish:
		if s.Active == nil {
			break
		}
		timing := timer.RecomputeWorkout(s.Timing, now)
		rec := models.CompletedSession{
			ActiveSession: s.Active.Clone(),
			CompletedAt:   now,
			OriginalID:    s.Active.TemplateID,
			Duration:      timing.ElapsedSeconds,
		}
		eff.Record = &rec
		if e.Template != nil && e.Template.ID == s.Active.TemplateID {
			if folded, changed := fold(*e.Template, *s.Active); changed {
				eff.Template = &folded
				eff.Changed |= DirtyTemplates
			}
		}
		next = State{}
		eff.Changed |= DirtyActive | DirtyTiming | DirtyRest | DirtyHistory

	case Cancel:
		next = State{}
		eff.Changed = DirtyActive | DirtyTiming | DirtyRest

	case Tick, Resume:
		var expired bool
		if _, ok := ev.(Resume); ok {
			next.Timing, next.Rest = timer.RecomputeOnResume(s.Timing, s.Rest, now)
			expired = s.Rest.IsResting && !next.Rest.IsResting
		} else {
			next.Timing = timer.RecomputeWorkout(s.Timing, now)
			next.Rest, expired = timer.RecomputeRest(s.Rest, now)
		}
		if next.Timing != s.Timing {
			eff.Changed |= DirtyTiming
		}
		if expired {
			eff.RestExpired = true
			eff.Changed |= DirtyRest
		}
	}

	next.Latched = latch(next, &eff)
	eff.To = next.Phase()
	return next, eff
}

func markSet(s State, e MarkSet, now time.Time, eff Effects) (State, Effects) {
	if s.Active == nil {
		return s, eff
	}
	i := s.Active.ExerciseIndex(e.ExerciseID)
	if i < 0 || e.Set < 0 || e.Set >= len(s.Active.Exercises[i].SetsCompleted) {
		return s, eff
	}

	next := s
	active := s.Active.Clone()
	ex := &active.Exercises[i]
	wasCompleted := ex.SetsCompleted[e.Set]
	ex.SetsCompleted[e.Set] = !wasCompleted
	next.Active = &active
	eff.Changed = DirtyActive

	if wasCompleted {
		return next, eff
	}

	kind := models.RestSet
	duration := models.RestSeconds(active.SetRest, models.DefaultSetRestSec)
	if ex.Done() {
		kind = models.RestExercise
		duration = models.RestSeconds(active.ExerciseRest, models.DefaultExerciseRestSec)
	}
	if rest, ok := timer.StartRest(s.Rest, now, kind, duration); ok {
		next.Rest = rest
		eff.Changed |= DirtyRest
		eff.RestStarted, eff.RestType = true, kind
	}
	return next, eff
}

// latch updates the completion edge latch and fires SessionComplete on the
// rising edge only.
func latch(s State, eff *Effects) bool {
	complete := s.Active != nil && s.Active.AllSetsCompleted()
	if complete && !s.Latched {
		eff.SessionComplete = true
	}
	return complete
}

// Restore builds the State for a session loaded from storage. The latch
// starts set when the stored session is already complete so that a restart
// does not signal completion a second time.
func Restore(active *models.ActiveSession, timing models.TimingState, rest models.RestState) State {
	s := State{Active: active, Timing: timing, Rest: rest}
	s.Latched = active != nil && active.AllSetsCompleted()
	return s
}

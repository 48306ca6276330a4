package models

import "time"

// RestType distinguishes rest between sets of one exercise from rest between exercises.
type RestType string

const (
	RestNone     RestType = ""
	RestSet      RestType = "set"
	RestExercise RestType = "exercise"
)

// Valid reports whether r names a real rest kind.
func (r RestType) Valid() bool {
	return r == RestSet || r == RestExercise
}

// Phase is the outer state of the workout state machine as seen by renderers.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhasePaused  Phase = "paused"
)

// ExerciseProgress is one exercise of an active session with per-set progress.
// CompletedReps and SetsCompleted always have length Sets.
type ExerciseProgress struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Sets            int    `json:"sets"`
	Reps            int    `json:"reps"`
	CompletedReps   []int  `json:"completedReps"`
	SetsCompleted   []bool `json:"setsCompleted"`
	LastPerformance []int  `json:"lastPerformance"`
}

// Done reports whether every set of the exercise is marked complete.
func (e ExerciseProgress) Done() bool {
	if len(e.SetsCompleted) == 0 {
		return false
	}
	for _, c := range e.SetsCompleted {
		if !c {
			return false
		}
	}
	return true
}

// ActiveSession is the single in-progress performance of a template.
type ActiveSession struct {
	TemplateID   string             `json:"templateId"`
	Title        string             `json:"title"`
	TotalTime    int                `json:"totalTime,omitempty"`
	ExerciseRest int                `json:"exerciseRest,omitempty"`
	SetRest      int                `json:"setRest,omitempty"`
	Exercises    []ExerciseProgress `json:"exercises"`
}

// AllSetsCompleted reports whether the session has at least one exercise and
// every exercise has all of its sets complete.
func (s ActiveSession) AllSetsCompleted() bool {
	if len(s.Exercises) == 0 {
		return false
	}
	for _, ex := range s.Exercises {
		if !ex.Done() {
			return false
		}
	}
	return true
}

// ExerciseIndex returns the position of the exercise with the given id, or -1.
func (s ActiveSession) ExerciseIndex(id string) int {
	for i, ex := range s.Exercises {
		if ex.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (s ActiveSession) Clone() ActiveSession {
	c := s
	c.Exercises = make([]ExerciseProgress, len(s.Exercises))
	for i, ex := range s.Exercises {
		ex.CompletedReps = append([]int(nil), ex.CompletedReps...)
		ex.SetsCompleted = append([]bool(nil), ex.SetsCompleted...)
		if ex.LastPerformance != nil {
			ex.LastPerformance = append([]int{}, ex.LastPerformance...)
		}
		c.Exercises[i] = ex
	}
	return c
}

// TimingState is the workout stopwatch. While running, ElapsedSeconds is
// derived from StartAnchor; otherwise it is frozen and StartAnchor is nil.
type TimingState struct {
	IsRunning      bool       `json:"isRunning"`
	ElapsedSeconds int        `json:"elapsedSeconds"`
	StartAnchor    *time.Time `json:"startAnchor"`
}

// RestState is the rest countdown. While resting, StartAnchor and Duration are set.
type RestState struct {
	IsResting   bool       `json:"isResting"`
	StartAnchor *time.Time `json:"restStartAnchor"`
	Duration    int        `json:"restDuration"`
	Type        RestType   `json:"restType"`
}

// CompletedSession is the immutable history record written by finishing a session.
type CompletedSession struct {
	ActiveSession
	CompletedAt time.Time `json:"completedAt"`
	OriginalID  string    `json:"originalId"`
	Duration    int       `json:"duration"` // seconds
}

// Clone returns a deep copy.
func (c CompletedSession) Clone() CompletedSession {
	out := c
	out.ActiveSession = c.ActiveSession.Clone()
	return out
}

// SessionView is the read-only state handed to renderers.
type SessionView struct {
	Phase             Phase          `json:"phase"`
	Active            *ActiveSession `json:"activeWorkout"`
	Timing            TimingState    `json:"timing"`
	Rest              RestState      `json:"rest"`
	RestRemaining     int            `json:"restRemaining"`
	Complete          bool           `json:"complete"`
	CompletionSignals int            `json:"completionSignals"`
}

// TemplateSummary is a template plus the last time it was completed, for list rendering.
type TemplateSummary struct {
	WorkoutTemplate
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
}

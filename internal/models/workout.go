package models

import (
	"errors"
	"fmt"
	"strings"
)

// Fallbacks applied when a stored exercise or template lacks a usable value.
const (
	DefaultSets            = 3
	DefaultReps            = 10
	DefaultSetRestSec      = 60
	DefaultExerciseRestSec = 120
)

// ErrInvalidTemplate wraps every validation failure returned by WorkoutTemplate.Validate.
var ErrInvalidTemplate = errors.New("invalid workout template")

// ExerciseSpec is one exercise of a template with its target sets and reps.
type ExerciseSpec struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Sets int    `json:"sets" yaml:"sets"`
	Reps int    `json:"reps" yaml:"reps"`
}

// WorkoutTemplate is a user-authored, reusable workout definition.
type WorkoutTemplate struct {
	ID           string         `json:"id" yaml:"id"`
	Title        string         `json:"title" yaml:"title"`
	TotalTime    int            `json:"totalTime" yaml:"total_time"`       // minutes, advisory
	ExerciseRest int            `json:"exerciseRest" yaml:"exercise_rest"` // seconds
	SetRest      int            `json:"setRest" yaml:"set_rest"`           // seconds
	Exercises    []ExerciseSpec `json:"exercises" yaml:"exercises"`
	CreatedAt    string         `json:"createdAt,omitempty" yaml:"-"`
}

// Validate applies the create-form rules: a title, a positive total time,
// at least one exercise, and every exercise named with positive sets and reps.
func (t WorkoutTemplate) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTemplate)
	}
	if t.TotalTime <= 0 {
		return fmt.Errorf("%w: totalTime must be a positive number of minutes", ErrInvalidTemplate)
	}
	if len(t.Exercises) == 0 {
		return fmt.Errorf("%w: at least one exercise is required", ErrInvalidTemplate)
	}
	for i, ex := range t.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return fmt.Errorf("%w: exercise %d has no name", ErrInvalidTemplate, i+1)
		}
		if ex.Sets <= 0 || ex.Reps <= 0 {
			return fmt.Errorf("%w: exercise %q needs positive sets and reps", ErrInvalidTemplate, ex.Name)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t WorkoutTemplate) Clone() WorkoutTemplate {
	c := t
	c.Exercises = append([]ExerciseSpec(nil), t.Exercises...)
	return c
}

// RestSeconds returns configured when it is positive, otherwise fallback.
func RestSeconds(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	return fallback
}

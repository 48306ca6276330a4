package session

import "github.com/claude/liftlog/internal/models"

// Build creates the ActiveSession for tmpl. Each exercise's CompletedReps is
// copied from the matching exercise of last and repaired to the current set
// count by truncating or zero-padding; only an exercise with no history is
// filled with its target reps. Every set starts incomplete.
func Build(tmpl models.WorkoutTemplate, last *models.CompletedSession, defaultSetRest, defaultExerciseRest int) models.ActiveSession {
	s := models.ActiveSession{
		TemplateID:   tmpl.ID,
		Title:        tmpl.Title,
		TotalTime:    tmpl.TotalTime,
		ExerciseRest: models.RestSeconds(tmpl.ExerciseRest, models.RestSeconds(defaultExerciseRest, models.DefaultExerciseRestSec)),
		SetRest:      models.RestSeconds(tmpl.SetRest, models.RestSeconds(defaultSetRest, models.DefaultSetRestSec)),
		Exercises:    make([]models.ExerciseProgress, 0, len(tmpl.Exercises)),
	}
	for _, planned := range tmpl.Exercises {
		var history []int
		if last != nil {
			if i := last.ExerciseIndex(planned.ID); i >= 0 {
				history = last.Exercises[i].CompletedReps
			}
		}
		s.Exercises = append(s.Exercises, prefill(planned, history))
	}
	return s
}

func prefill(planned models.ExerciseSpec, history []int) models.ExerciseProgress {
	sets := positive(planned.Sets, models.DefaultSets)
	reps := positive(planned.Reps, models.DefaultReps)

	ex := models.ExerciseProgress{
		ID:            planned.ID,
		Name:          planned.Name,
		Sets:          sets,
		Reps:          reps,
		SetsCompleted: make([]bool, sets),
	}
	if history == nil {
		ex.CompletedReps = make([]int, sets)
		for i := range ex.CompletedReps {
			ex.CompletedReps[i] = reps
		}
		return ex
	}
	ex.CompletedReps = resizeInts(history, sets)
	ex.LastPerformance = append([]int{}, history...)
	return ex
}

// reshape rebuilds the session's exercises from an edited template. Exercises
// that survive keep their progress, resized to the new set count; new ones
// start zero-filled.
func reshape(s models.ActiveSession, tmpl models.WorkoutTemplate) models.ActiveSession {
	out := s.Clone()
	out.Title = tmpl.Title
	out.TotalTime = tmpl.TotalTime
	out.ExerciseRest = models.RestSeconds(tmpl.ExerciseRest, s.ExerciseRest)
	out.SetRest = models.RestSeconds(tmpl.SetRest, s.SetRest)
	out.Exercises = make([]models.ExerciseProgress, 0, len(tmpl.Exercises))

	for _, planned := range tmpl.Exercises {
		sets := positive(planned.Sets, models.DefaultSets)
		reps := positive(planned.Reps, models.DefaultReps)
		ex := models.ExerciseProgress{ID: planned.ID, Name: planned.Name, Sets: sets, Reps: reps}
		if i := s.ExerciseIndex(planned.ID); i >= 0 {
			prev := s.Exercises[i]
			ex.CompletedReps = resizeInts(prev.CompletedReps, sets)
			ex.SetsCompleted = resizeBools(prev.SetsCompleted, sets)
			if prev.LastPerformance != nil {
				ex.LastPerformance = append([]int{}, prev.LastPerformance...)
			}
		} else {
			ex.CompletedReps = make([]int, sets)
			ex.SetsCompleted = make([]bool, sets)
		}
		out.Exercises = append(out.Exercises, ex)
	}
	return out
}

// fold copies name, sets and reps of the session's exercises onto the matching
// template exercises. It reports whether anything changed.
func fold(tmpl models.WorkoutTemplate, s models.ActiveSession) (models.WorkoutTemplate, bool) {
	out := tmpl.Clone()
	changed := false
	for i, planned := range out.Exercises {
		j := s.ExerciseIndex(planned.ID)
		if j < 0 {
			continue
		}
		ex := s.Exercises[j]
		if planned.Name != ex.Name || planned.Sets != ex.Sets || planned.Reps != ex.Reps {
			out.Exercises[i] = models.ExerciseSpec{ID: planned.ID, Name: ex.Name, Sets: ex.Sets, Reps: ex.Reps}
			changed = true
		}
	}
	return out, changed
}

func resizeInts(in []int, n int) []int {
	out := make([]int, n)
	copy(out, in)
	return out
}

func resizeBools(in []bool, n int) []bool {
	out := make([]bool, n)
	copy(out, in)
	return out
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

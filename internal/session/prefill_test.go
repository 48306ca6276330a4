package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/liftlog/internal/models"
)

// TestBuildPrefill verifies prefill from history, including repair of arrays
// whose length no longer matches the template's set count.
func TestBuildPrefill(t *testing.T) {
	tmpl := models.WorkoutTemplate{
		ID:    "w",
		Title: "W",
		Exercises: []models.ExerciseSpec{
			{ID: "grow", Name: "Squat", Sets: 5, Reps: 5},
			{ID: "shrink", Name: "Row", Sets: 2, Reps: 10},
			{ID: "new", Name: "Curl", Sets: 3, Reps: 12},
			{ID: "empty", Name: "Plank", Sets: 2, Reps: 1},
		},
	}
	last := &models.CompletedSession{ActiveSession: models.ActiveSession{
		TemplateID: "w",
		Exercises: []models.ExerciseProgress{
			{ID: "grow", CompletedReps: []int{5, 4, 3}},
			{ID: "shrink", CompletedReps: []int{10, 9, 8, 7}},
			{ID: "empty", CompletedReps: []int{}},
		},
	}}

	s := Build(tmpl, last, 0, 0)

	tests := []struct {
		id       string
		wantReps []int
		wantLast []int
	}{
		{"grow", []int{5, 4, 3, 0, 0}, []int{5, 4, 3}},
		{"shrink", []int{10, 9}, []int{10, 9, 8, 7}},
		{"new", []int{12, 12, 12}, nil},
		{"empty", []int{0, 0}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			ex := s.Exercises[s.ExerciseIndex(tt.id)]
			if diff := cmp.Diff(tt.wantReps, ex.CompletedReps); diff != "" {
				t.Errorf("completedReps mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLast, ex.LastPerformance); diff != "" {
				t.Errorf("lastPerformance mismatch (-want +got):\n%s", diff)
			}
			if len(ex.SetsCompleted) != ex.Sets {
				t.Errorf("setsCompleted length = %d, want %d", len(ex.SetsCompleted), ex.Sets)
			}
			for i, c := range ex.SetsCompleted {
				if c {
					t.Errorf("set %d prefilled as complete", i)
				}
			}
		})
	}

	// History must not alias into the session.
	last.Exercises[0].CompletedReps[0] = 99
	if s.Exercises[0].CompletedReps[0] != 5 || s.Exercises[0].LastPerformance[0] != 5 {
		t.Error("session shares backing arrays with history")
	}
}

// TestBuildRestDefaults verifies template rest values win over configured
// defaults, which win over the built-in fallbacks.
func TestBuildRestDefaults(t *testing.T) {
	tests := []struct {
		name                string
		setRest, exRest     int
		defSet, defEx       int
		wantSet, wantExRest int
	}{
		{"template values", 30, 100, 50, 150, 30, 100},
		{"configured defaults", 0, 0, 50, 150, 50, 150},
		{"built-in fallbacks", -1, 0, 0, 0, 60, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := models.WorkoutTemplate{ID: "x", SetRest: tt.setRest, ExerciseRest: tt.exRest}
			s := Build(tmpl, nil, tt.defSet, tt.defEx)
			if s.SetRest != tt.wantSet || s.ExerciseRest != tt.wantExRest {
				t.Errorf("rests = %d/%d, want %d/%d", s.SetRest, s.ExerciseRest, tt.wantSet, tt.wantExRest)
			}
		})
	}
}

// TestBuildExerciseDefaults verifies non-positive sets and reps fall back to 3 and 10.
func TestBuildExerciseDefaults(t *testing.T) {
	s := Build(models.WorkoutTemplate{ID: "x", Exercises: []models.ExerciseSpec{{ID: "a", Name: "A"}}}, nil, 0, 0)
	ex := s.Exercises[0]
	if ex.Sets != 3 || ex.Reps != 10 {
		t.Errorf("sets/reps = %d/%d, want 3/10", ex.Sets, ex.Reps)
	}
	if diff := cmp.Diff([]int{10, 10, 10}, ex.CompletedReps); diff != "" {
		t.Errorf("completedReps mismatch (-want +got):\n%s", diff)
	}
}

// TestReshapeKeepsProgress verifies in-session edits resize progress arrays.
func TestReshapeKeepsProgress(t *testing.T) {
	active := models.ActiveSession{
		TemplateID: "w",
		SetRest:    60,
		Exercises: []models.ExerciseProgress{{
			ID: "a", Name: "A", Sets: 3, Reps: 8,
			CompletedReps: []int{8, 7, 6},
			SetsCompleted: []bool{true, true, false},
		}},
	}
	edited := models.WorkoutTemplate{
		ID:    "w",
		Title: "W2",
		Exercises: []models.ExerciseSpec{
			{ID: "a", Name: "A+", Sets: 2, Reps: 8},
			{ID: "b", Name: "B", Sets: 2, Reps: 5},
		},
	}

	got := reshape(active, edited)

	want := []models.ExerciseProgress{
		{ID: "a", Name: "A+", Sets: 2, Reps: 8, CompletedReps: []int{8, 7}, SetsCompleted: []bool{true, true}},
		{ID: "b", Name: "B", Sets: 2, Reps: 5, CompletedReps: []int{0, 0}, SetsCompleted: []bool{false, false}},
	}
	if diff := cmp.Diff(want, got.Exercises); diff != "" {
		t.Errorf("exercises mismatch (-want +got):\n%s", diff)
	}
	if got.Title != "W2" || got.SetRest != 60 {
		t.Errorf("title/setRest = %q/%d", got.Title, got.SetRest)
	}
	if active.Exercises[0].Sets != 3 {
		t.Error("reshape mutated its input")
	}
}

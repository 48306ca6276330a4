package persist

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/models"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func opValue(t *testing.T, ops []kv.Op, key string) (string, bool) {
	t.Helper()
	for _, op := range ops {
		if op.Key == key {
			return op.Value, !op.Remove
		}
	}
	t.Fatalf("no op for %s", key)
	return "", false
}

func sampleSession() models.ActiveSession {
	return models.ActiveSession{
		TemplateID:   "1718000000000",
		Title:        "Pull Day",
		TotalTime:    50,
		ExerciseRest: 120,
		SetRest:      60,
		Exercises: []models.ExerciseProgress{
			{
				ID: "a", Name: "Deadlift", Sets: 3, Reps: 5,
				CompletedReps:   []int{5, 5, 4},
				SetsCompleted:   []bool{true, true, false},
				LastPerformance: []int{5, 4, 4},
			},
			{
				ID: "b", Name: "Chin-up", Sets: 2, Reps: 8,
				CompletedReps: []int{8, 8},
				SetsCompleted: []bool{false, false},
			},
		},
	}
}

// TestRoundTrip verifies templates, sessions and history records survive
// encoding through the store value format unchanged.
func TestRoundTrip(t *testing.T) {
	opts := cmpopts.EquateEmpty()

	t.Run("templates", func(t *testing.T) {
		in := []models.WorkoutTemplate{{
			ID: "1718000000000", Title: "Pull Day", TotalTime: 50, ExerciseRest: 120, SetRest: 60,
			CreatedAt: "2026-03-01T10:00:00Z",
			Exercises: []models.ExerciseSpec{{ID: "a", Name: "Deadlift", Sets: 3, Reps: 5}},
		}}
		ops, err := TemplatesOps(in)
		if err != nil {
			t.Fatal(err)
		}
		raw, present := opValue(t, ops, KeyWorkouts)
		got := DecodeTemplates(raw, present)
		if got.Status != Ok {
			t.Fatalf("status = %s: %v", got.Status, got.Err)
		}
		if diff := cmp.Diff(in, got.Value, opts); diff != "" {
			t.Errorf("templates mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("active session", func(t *testing.T) {
		in := sampleSession()
		ops, err := ActiveOps(&in)
		if err != nil {
			t.Fatal(err)
		}
		raw, present := opValue(t, ops, KeyActiveWorkout)
		got := DecodeActive(raw, present)
		if got.Status != Ok {
			t.Fatalf("status = %s: %v", got.Status, got.Err)
		}
		if diff := cmp.Diff(in, *got.Value, opts); diff != "" {
			t.Errorf("session mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("history", func(t *testing.T) {
		in := []models.CompletedSession{{
			ActiveSession: sampleSession(),
			CompletedAt:   t0.Add(1500 * time.Millisecond),
			OriginalID:    "1718000000000",
			Duration:      2710,
		}}
		ops, err := HistoryOps(in)
		if err != nil {
			t.Fatal(err)
		}
		raw, present := opValue(t, ops, KeyHistory)
		got := DecodeHistory(raw, present)
		if got.Status != Ok {
			t.Fatalf("status = %s: %v", got.Status, got.Err)
		}
		if diff := cmp.Diff(in, got.Value, opts); diff != "" {
			t.Errorf("history mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestDecodeMalformed verifies that corrupt or mistyped values decode as
// Invalid rather than failing, and absent keys as Absent.
func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		present bool
		want    Status
	}{
		{"absent", "", false, Absent},
		{"corrupt json", `[{"id":`, true, Invalid},
		{"object not array", `{"id":"x"}`, true, Invalid},
		{"number", `42`, true, Invalid},
		{"empty array", `[]`, true, Ok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeTemplates(tt.raw, tt.present); got.Status != tt.want {
				t.Errorf("templates status = %s, want %s", got.Status, tt.want)
			}
			if got := DecodeHistory(tt.raw, tt.present); got.Status != tt.want {
				t.Errorf("history status = %s, want %s", got.Status, tt.want)
			}
		})
	}

	for _, raw := range []string{`[]`, `"session"`, `{"title":"no id"}`, `{bad`} {
		if got := DecodeActive(raw, true); got.Status != Invalid {
			t.Errorf("DecodeActive(%s) status = %s, want invalid", raw, got.Status)
		}
	}
	if got := DecodeActive("null", true); got.Status != Absent {
		t.Errorf("DecodeActive(null) status = %s, want absent", got.Status)
	}
}

// TestDecodeTemplatesTolerant verifies element-level repair: non-object and
// id-less entries are dropped, string numbers parse, and bad counts default.
func TestDecodeTemplatesTolerant(t *testing.T) {
	raw := `[
		"junk",
		{"title":"no id"},
		{"id":"1","title":"Legs","totalTime":"40","exerciseRest":null,"setRest":"60",
		 "exercises":[{"id":"s","name":"Squat","sets":"4","reps":"6","completed":[0,0,0,0]},
		              {"id":"l","name":"Lunge","sets":0,"reps":-2},
		              7]}
	]`
	got := DecodeTemplates(raw, true)
	if got.Status != Ok {
		t.Fatalf("status = %s", got.Status)
	}
	if got.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", got.Dropped)
	}
	want := []models.WorkoutTemplate{{
		ID: "1", Title: "Legs", TotalTime: 40, SetRest: 60,
		Exercises: []models.ExerciseSpec{
			{ID: "s", Name: "Squat", Sets: 4, Reps: 6},
			{ID: "l", Name: "Lunge", Sets: 3, Reps: 10},
		},
	}}
	if diff := cmp.Diff(want, got.Value); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
}

// TestDecodeLegacySession verifies the older stored shape: the template id in
// "id", per-set reps in "completed", and arrays that disagree with sets.
func TestDecodeLegacySession(t *testing.T) {
	raw := `{"id":"1700000000000","title":"Old","exercises":[
		{"id":"x","name":"Press","sets":4,"reps":8,"completed":[8,7],"setsCompleted":[true],"isCompleted":false,"lastPerformance":null}
	]}`
	got := DecodeActive(raw, true)
	if got.Status != Ok {
		t.Fatalf("status = %s: %v", got.Status, got.Err)
	}
	s := got.Value
	if s.TemplateID != "1700000000000" {
		t.Errorf("templateId = %q", s.TemplateID)
	}
	ex := s.Exercises[0]
	if diff := cmp.Diff([]int{8, 7, 0, 0}, ex.CompletedReps); diff != "" {
		t.Errorf("completedReps (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false, false, false}, ex.SetsCompleted); diff != "" {
		t.Errorf("setsCompleted (-want +got):\n%s", diff)
	}
	if ex.LastPerformance != nil {
		t.Errorf("lastPerformance = %v, want nil", ex.LastPerformance)
	}
}

// TestDecodeLegacyHistory verifies originalId falls back to the record's id and
// JavaScript ISO timestamps parse.
func TestDecodeLegacyHistory(t *testing.T) {
	raw := `[{"id":"42","title":"A","completedAt":"2026-03-14T09:00:00.000Z","duration":"600",
	          "exercises":[{"id":"e","name":"Row","sets":1,"reps":5,"completed":[5],"setsCompleted":[true]}]},
	         {"title":"unattributed"}]`
	got := DecodeHistory(raw, true)
	if got.Status != Ok || len(got.Value) != 1 || got.Dropped != 1 {
		t.Fatalf("got %+v", got)
	}
	rec := got.Value[0]
	if rec.OriginalID != "42" || rec.TemplateID != "42" || rec.Duration != 600 {
		t.Errorf("record = %+v", rec)
	}
	if !rec.CompletedAt.Equal(t0) {
		t.Errorf("completedAt = %v, want %v", rec.CompletedAt, t0)
	}
}

// TestTimingRoundTrip verifies the stopwatch keys for running and paused states.
func TestTimingRoundTrip(t *testing.T) {
	anchor := t0.Add(-90 * time.Second)
	running := models.TimingState{IsRunning: true, ElapsedSeconds: 90, StartAnchor: &anchor}

	got := DecodeTiming(apply(TimingOps(running)))
	if got.Status != Ok || got.Err != nil {
		t.Fatalf("got %+v", got)
	}
	if !got.Value.IsRunning || got.Value.ElapsedSeconds != 90 || !got.Value.StartAnchor.Equal(anchor) {
		t.Errorf("running = %+v", got.Value)
	}

	paused := models.TimingState{ElapsedSeconds: 300}
	values := apply(TimingOps(paused))
	if _, present := values[KeyWorkoutTimerData]; present {
		t.Error("paused state must remove workoutTimerData")
	}
	if got := DecodeTiming(values).Value; got != paused {
		t.Errorf("paused = %+v, want %+v", got, paused)
	}
}

// TestDecodeTimingLegacy verifies scalar-only state and unreadable scalars.
func TestDecodeTimingLegacy(t *testing.T) {
	got := DecodeTiming(map[string]string{KeyWorkoutTimer: "125", KeyIsWorkoutRunning: "true"})
	if !got.Value.IsRunning || got.Value.ElapsedSeconds != 125 || got.Value.StartAnchor != nil {
		t.Errorf("legacy running = %+v", got.Value)
	}

	got = DecodeTiming(map[string]string{KeyWorkoutTimer: "abc", KeyWorkoutTimerData: "[1]"})
	if got.Status != Ok || got.Err == nil {
		t.Errorf("unreadable scalars should default with an error, got %+v", got)
	}
	if got.Value != (models.TimingState{}) {
		t.Errorf("value = %+v, want zero", got.Value)
	}
}

// TestRestRoundTrip verifies the rest keys and the remaining-seconds scalar.
func TestRestRoundTrip(t *testing.T) {
	anchor := t0
	rs := models.RestState{IsResting: true, StartAnchor: &anchor, Duration: 90, Type: models.RestExercise}

	values := apply(RestOps(rs, t0.Add(30*time.Second)))
	if values[KeyRestTimer] != "60" || values[KeyIsResting] != "true" || values[KeyRestType] != "exercise" {
		t.Errorf("scalars = %v", values)
	}
	got := DecodeRest(values, t0.Add(time.Hour))
	if got.Status != Ok || !got.Value.IsResting || got.Value.Duration != 90 || !got.Value.StartAnchor.Equal(anchor) {
		t.Errorf("rest = %+v", got.Value)
	}

	cleared := apply(RestOps(models.RestState{}, t0))
	if _, present := cleared[KeyRestTimerData]; present {
		t.Error("idle rest must remove restTimerData")
	}
	if got := DecodeRest(cleared, t0); got.Value.IsResting {
		t.Errorf("cleared rest decoded as %+v", got.Value)
	}
}

// TestDecodeRestLegacy verifies scalar-only rests restart at now with the stored
// remaining time, and corrupt anchor records are Invalid.
func TestDecodeRestLegacy(t *testing.T) {
	now := t0.Add(time.Minute)
	got := DecodeRest(map[string]string{KeyIsResting: "true", KeyRestTimer: "40", KeyRestType: "set"}, now)
	if !got.Value.IsResting || got.Value.Duration != 40 || !got.Value.StartAnchor.Equal(now) || got.Value.Type != models.RestSet {
		t.Errorf("legacy rest = %+v", got.Value)
	}

	if got := DecodeRest(map[string]string{KeyRestTimerData: `"oops"`}, now); got.Status != Invalid {
		t.Errorf("status = %s, want invalid", got.Status)
	}
	got = DecodeRest(map[string]string{KeyRestTimerData: `{"isResting":true,"startTime":1773478800000,"duration":60,"type":"nap"}`}, now)
	if got.Value.Type != models.RestNone {
		t.Errorf("unknown rest type decoded as %q", got.Value.Type)
	}
}

// TestDecodeAnchorRecordFlags verifies the running and resting flags of the
// anchor records accept bools and strings, and that a false flag or a missing
// start time leaves the timer without an anchor.
func TestDecodeAnchorRecordFlags(t *testing.T) {
	tests := []struct {
		name        string
		timerData   string
		restData    string
		wantRunning bool
		wantResting bool
	}{
		{"bool flags", `{"isRunning":true,"startTime":1773478800000}`, `{"isResting":true,"startTime":1773478800000,"duration":60,"type":"set"}`, true, true},
		{"string flags", `{"isRunning":"true","startTime":"2026-03-14T09:00:00Z"}`, `{"isResting":"true","startTime":"2026-03-14T09:00:00Z","duration":"60","type":"set"}`, true, true},
		{"false flags", `{"isRunning":false,"startTime":1773478800000}`, `{"isResting":false,"startTime":1773478800000,"duration":60}`, false, false},
		{"missing start", `{"isRunning":true}`, `{"isResting":true,"duration":60}`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timing := DecodeTiming(map[string]string{KeyWorkoutTimerData: tt.timerData}).Value
			if timing.IsRunning != tt.wantRunning || (timing.StartAnchor != nil) != tt.wantRunning {
				t.Errorf("timing = %+v, want running %v", timing, tt.wantRunning)
			}
			if tt.wantRunning && !timing.StartAnchor.Equal(t0) {
				t.Errorf("timing anchor = %v, want %v", timing.StartAnchor, t0)
			}

			rest := DecodeRest(map[string]string{KeyRestTimerData: tt.restData}, t0.Add(10*time.Second)).Value
			if rest.IsResting != tt.wantResting {
				t.Errorf("rest = %+v, want resting %v", rest, tt.wantResting)
			}
			if tt.wantResting && (rest.Duration != 60 || rest.Type != models.RestSet || !rest.StartAnchor.Equal(t0)) {
				t.Errorf("rest = %+v", rest)
			}
		})
	}
}

// apply folds ops into a fresh value map the way a store would.
func apply(ops []kv.Op) map[string]string {
	values := map[string]string{}
	for _, op := range ops {
		if op.Remove {
			delete(values, op.Key)
		} else {
			values[op.Key] = op.Value
		}
	}
	return values
}

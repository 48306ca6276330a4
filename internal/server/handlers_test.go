package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/timer"
	"github.com/claude/liftlog/internal/tracker"
)

type testEnv struct {
	srv   *Server
	clock *timer.ManualClock
	tr    *tracker.Tracker
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := timer.NewManualClock(time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC))
	m := metrics.New()
	tr := tracker.New(kv.NewMemory(), tracker.Options{
		Clock:        clock,
		Logger:       log,
		Metrics:      m,
		TickInterval: -1,
	})
	tr.Load(context.Background())
	t.Cleanup(tr.Close)
	return &testEnv{srv: New(tr, m, apiKey, log), clock: clock, tr: tr}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-API-Key", "k")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code
}

func legDay() models.WorkoutTemplate {
	return models.WorkoutTemplate{
		Title:     "Leg Day",
		TotalTime: 50,
		SetRest:   90,
		Exercises: []models.ExerciseSpec{
			{Name: "Squat", Sets: 2, Reps: 5},
		},
	}
}

// TestWorkoutCRUD verifies create, read, update and delete of templates.
func TestWorkoutCRUD(t *testing.T) {
	e := newTestEnv(t, "k")

	var created models.WorkoutTemplate
	if code := e.do(t, http.MethodPost, "/api/v1/workouts", legDay(), &created); code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", code)
	}
	if created.ID == "" || created.Exercises[0].ID == "" {
		t.Fatalf("created template missing ids: %+v", created)
	}

	var got models.WorkoutTemplate
	if code := e.do(t, http.MethodGet, "/api/v1/workouts/"+created.ID, nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", code)
	}
	if got.Title != "Leg Day" {
		t.Errorf("title = %q, want %q", got.Title, "Leg Day")
	}

	edit := created
	edit.Title = "Leg Day B"
	if code := e.do(t, http.MethodPut, "/api/v1/workouts/"+created.ID, edit, &got); code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", code)
	}
	if got.Title != "Leg Day B" {
		t.Errorf("title after update = %q", got.Title)
	}

	var list []models.TemplateSummary
	e.do(t, http.MethodGet, "/api/v1/workouts", nil, &list)
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}

	if code := e.do(t, http.MethodDelete, "/api/v1/workouts/"+created.ID, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", code)
	}
	if code := e.do(t, http.MethodGet, "/api/v1/workouts/"+created.ID, nil, nil); code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", code)
	}
}

// TestCreateWorkoutValidation verifies the create-form rules are enforced.
func TestCreateWorkoutValidation(t *testing.T) {
	e := newTestEnv(t, "")

	tests := []struct {
		name   string
		mutate func(*models.WorkoutTemplate)
	}{
		{"blank title", func(w *models.WorkoutTemplate) { w.Title = "  " }},
		{"zero total time", func(w *models.WorkoutTemplate) { w.TotalTime = 0 }},
		{"no exercises", func(w *models.WorkoutTemplate) { w.Exercises = nil }},
		{"unnamed exercise", func(w *models.WorkoutTemplate) { w.Exercises[0].Name = "" }},
		{"zero sets", func(w *models.WorkoutTemplate) { w.Exercises[0].Sets = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := legDay()
			tt.mutate(&w)
			if code := e.do(t, http.MethodPost, "/api/v1/workouts", w, nil); code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", code)
			}
		})
	}
}

// TestSessionFlow verifies a full session driven over HTTP.
func TestSessionFlow(t *testing.T) {
	e := newTestEnv(t, "k")
	var tmpl models.WorkoutTemplate
	e.do(t, http.MethodPost, "/api/v1/workouts", legDay(), &tmpl)
	squat := tmpl.Exercises[0].ID

	var view models.SessionView
	if code := e.do(t, http.MethodPost, "/api/v1/session", ActivateRequest{TemplateID: tmpl.ID}, &view); code != http.StatusOK {
		t.Fatalf("activate status = %d", code)
	}
	if view.Phase != models.PhasePaused || view.Active == nil {
		t.Fatalf("after activate phase = %q active = %v", view.Phase, view.Active)
	}

	e.do(t, http.MethodPost, "/api/v1/session/start", nil, &view)
	if view.Phase != models.PhaseRunning {
		t.Errorf("phase = %q, want running", view.Phase)
	}

	e.clock.Advance(95 * time.Second)
	e.do(t, http.MethodPost, "/api/v1/session/sets", SetRequest{ExerciseID: squat, Set: 0}, &view)
	if !view.Rest.IsResting || view.Rest.Type != models.RestSet || view.RestRemaining != 90 {
		t.Errorf("rest after first set = %+v remaining %d", view.Rest, view.RestRemaining)
	}

	e.do(t, http.MethodPost, "/api/v1/session/reps", RepsRequest{ExerciseID: squat, Set: 0, Delta: 1}, &view)
	if got := view.Active.Exercises[0].CompletedReps[0]; got != 6 {
		t.Errorf("reps = %d, want 6", got)
	}

	e.do(t, http.MethodDelete, "/api/v1/rest", nil, &view)
	if view.Rest.IsResting {
		t.Error("rest still running after skip")
	}

	e.do(t, http.MethodGet, "/api/v1/state", nil, &view)
	if view.Timing.ElapsedSeconds != 95 {
		t.Errorf("elapsed = %d, want 95", view.Timing.ElapsedSeconds)
	}

	var rec models.CompletedSession
	if code := e.do(t, http.MethodPost, "/api/v1/session/finish", nil, &rec); code != http.StatusOK {
		t.Fatalf("finish status = %d", code)
	}
	if rec.Duration != 95 || rec.OriginalID != tmpl.ID {
		t.Errorf("record = %+v", rec)
	}

	var last models.CompletedSession
	if code := e.do(t, http.MethodGet, "/api/v1/workouts/"+tmpl.ID+"/last-session", nil, &last); code != http.StatusOK {
		t.Fatalf("last-session status = %d", code)
	}
	if last.Exercises[0].CompletedReps[0] != 6 {
		t.Errorf("last session reps = %v", last.Exercises[0].CompletedReps)
	}

	var history []models.CompletedSession
	e.do(t, http.MethodGet, "/api/v1/history?start=2026-04-10&end=2026-04-10", nil, &history)
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

// TestSessionErrors verifies tracker errors map onto HTTP statuses.
func TestSessionErrors(t *testing.T) {
	e := newTestEnv(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"start without session", http.MethodPost, "/api/v1/session/start", nil, http.StatusConflict},
		{"finish without session", http.MethodPost, "/api/v1/session/finish", nil, http.StatusConflict},
		{"unknown template", http.MethodPost, "/api/v1/session", ActivateRequest{TemplateID: "nope"}, http.StatusNotFound},
		{"blank template", http.MethodPost, "/api/v1/session", ActivateRequest{}, http.StatusBadRequest},
		{"zero rest", http.MethodPost, "/api/v1/rest", RestRequest{Type: models.RestSet}, http.StatusBadRequest},
		{"negative timer", http.MethodPut, "/api/v1/session/timer", TimerRequest{Seconds: -5}, http.StatusBadRequest},
		{"bad lifecycle", http.MethodPost, "/api/v1/lifecycle", LifecycleRequest{State: "asleep"}, http.StatusBadRequest},
		{"no last session", http.MethodGet, "/api/v1/workouts/x/last-session", nil, http.StatusNotFound},
		{"bad history range", http.MethodGet, "/api/v1/history?start=yesterday", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := e.do(t, tt.method, tt.path, tt.body, nil); code != tt.status {
				t.Errorf("status = %d, want %d", code, tt.status)
			}
		})
	}
}

// TestInvalidJSON verifies malformed bodies are rejected before reaching the tracker.
func TestInvalidJSON(t *testing.T) {
	e := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestMutationsRequireAPIKey verifies reads stay open while writes need the key.
func TestMutationsRequireAPIKey(t *testing.T) {
	e := newTestEnv(t, "k")

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/session/start", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("mutation without key status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("read without key status = %d, want 200", rec.Code)
	}
}

// TestLifecycleRoute verifies background and foreground signals reach the tracker.
func TestLifecycleRoute(t *testing.T) {
	e := newTestEnv(t, "")
	var tmpl models.WorkoutTemplate
	e.do(t, http.MethodPost, "/api/v1/workouts", legDay(), &tmpl)
	e.do(t, http.MethodPost, "/api/v1/session", ActivateRequest{TemplateID: tmpl.ID}, nil)
	e.do(t, http.MethodPost, "/api/v1/session/start", nil, nil)

	var view models.SessionView
	if code := e.do(t, http.MethodPost, "/api/v1/lifecycle", LifecycleRequest{State: "background"}, &view); code != http.StatusOK {
		t.Fatalf("background status = %d", code)
	}
	e.clock.Advance(10 * time.Minute)
	e.do(t, http.MethodPost, "/api/v1/lifecycle", LifecycleRequest{State: "foreground"}, &view)
	if view.Timing.ElapsedSeconds != 600 {
		t.Errorf("elapsed after resume = %d, want 600", view.Timing.ElapsedSeconds)
	}
}

// TestMetricsRoute verifies the Prometheus endpoint exposes tracker collectors.
func TestMetricsRoute(t *testing.T) {
	e := newTestEnv(t, "")
	var tmpl models.WorkoutTemplate
	e.do(t, http.MethodPost, "/api/v1/workouts", legDay(), &tmpl)
	e.do(t, http.MethodPost, "/api/v1/session", ActivateRequest{TemplateID: tmpl.ID}, nil)

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "liftlog_session_transitions_total") {
		t.Error("metrics output missing transition counter")
	}
}

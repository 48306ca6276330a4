package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/tracker"
	"github.com/go-chi/chi/v5"
)

// Request bodies of the session routes.
type (
	ActivateRequest struct {
		TemplateID string `json:"templateId"`
	}
	SetRequest struct {
		ExerciseID string `json:"exerciseId"`
		Set        int    `json:"set"`
	}
	RepsRequest struct {
		ExerciseID string `json:"exerciseId"`
		Set        int    `json:"set"`
		Delta      int    `json:"delta"`
	}
	TimerRequest struct {
		Seconds int `json:"seconds"`
	}
	RestRequest struct {
		Type    models.RestType `json:"type"`
		Seconds int             `json:"seconds"`
	}
	LifecycleRequest struct {
		State string `json:"state"` // foreground | background
	}
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.View())
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	out, err := s.tracker.ListWorkouts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := s.tracker.Workout(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleLastSession(w http.ResponseWriter, r *http.Request) {
	last, err := s.tracker.GetLastSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed session"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	out, err := s.tracker.QueryHistory(r.Context(), start, end, r.URL.Query().Get("template"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if out == nil {
		out = []models.CompletedSession{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var tmpl models.WorkoutTemplate
	if !decodeBody(w, r, &tmpl) {
		return
	}
	if err := tmpl.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, s.tracker.AddWorkout(tmpl))
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	var tmpl models.WorkoutTemplate
	if !decodeBody(w, r, &tmpl) {
		return
	}
	if err := tmpl.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	tmpl.ID = chi.URLParam(r, "id")
	out, err := s.tracker.UpdateWorkout(tmpl)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteWorkout(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := s.tracker.SetActiveWorkout(r.Context(), req.TemplateID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.View())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.tracker.StartWorkout())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.tracker.PauseWorkout())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.tracker.Cancel())
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	rec, err := s.tracker.FinishWorkout()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleMarkSet(w http.ResponseWriter, r *http.Request) {
	var req SetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.respond(w, s.tracker.MarkSetCompleted(req.ExerciseID, req.Set))
}

func (s *Server) handleAdjustReps(w http.ResponseWriter, r *http.Request) {
	var req RepsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.respond(w, s.tracker.UpdateReps(req.ExerciseID, req.Set, req.Delta))
}

func (s *Server) handleSetTimer(w http.ResponseWriter, r *http.Request) {
	var req TimerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Seconds < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seconds must not be negative"})
		return
	}
	s.tracker.SetWorkoutTimer(req.Seconds)
	s.respond(w, nil)
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	var req RestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.respond(w, s.tracker.StartRest(req.Type, req.Seconds))
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	s.tracker.SkipRest()
	s.respond(w, nil)
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	var req LifecycleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch req.State {
	case "foreground":
		s.tracker.Foreground()
	case "background":
		s.tracker.Background()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "state must be foreground or background"})
		return
	}
	s.respond(w, nil)
}

// respond writes the session view after a successful operation.
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.View())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracker.ErrUnknownTemplate), errors.Is(err, tracker.ErrUnknownExercise):
		status = http.StatusNotFound
	case errors.Is(err, tracker.ErrNoActiveSession):
		status = http.StatusConflict
	case errors.Is(err, tracker.ErrInvalidWorkout), errors.Is(err, tracker.ErrInvalidDuration),
		errors.Is(err, models.ErrInvalidTemplate):
		status = http.StatusBadRequest
	default:
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}

package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/tracker"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	tracker *tracker.Tracker
	metrics *metrics.Metrics
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured. When apiKey is
// empty, mutating routes are open.
func New(t *tracker.Tracker, m *metrics.Metrics, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		tracker: t,
		metrics: m,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// Read-only state for renderers
		r.Get("/state", s.handleState)
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/workouts/{id}/last-session", s.handleLastSession)
		r.Get("/history", s.handleHistory)

		// Mutations (API key required when configured)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))

			r.Post("/workouts", s.handleCreateWorkout)
			r.Put("/workouts/{id}", s.handleUpdateWorkout)
			r.Delete("/workouts/{id}", s.handleDeleteWorkout)

			r.Post("/session", s.handleActivate)
			r.Delete("/session", s.handleCancel)
			r.Post("/session/start", s.handleStart)
			r.Post("/session/pause", s.handlePause)
			r.Post("/session/finish", s.handleFinish)
			r.Post("/session/sets", s.handleMarkSet)
			r.Post("/session/reps", s.handleAdjustReps)
			r.Put("/session/timer", s.handleSetTimer)

			r.Post("/rest", s.handleStartRest)
			r.Delete("/rest", s.handleSkipRest)

			r.Post("/lifecycle", s.handleLifecycle)
		})
	})
}

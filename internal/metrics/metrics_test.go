package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/liftlog/internal/models"
)

// TestNilMetricsIsSafe verifies that every recorder tolerates a nil receiver.
func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncTransition(models.PhaseIdle, models.PhasePaused)
	m.ObserveSessionDuration(time.Minute)
	m.IncSessionComplete()
	m.IncRest(models.RestSet)
	m.IncPersistFailure("workouts")
	m.ObservePersistWrite(time.Millisecond)
	m.IncDecodeInvalid("workouts")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

// TestCounters verifies label handling for transitions and rests.
func TestCounters(t *testing.T) {
	m := New()
	m.IncTransition(models.PhasePaused, models.PhaseRunning)
	m.IncTransition(models.PhasePaused, models.PhaseRunning)
	m.IncTransition(models.PhaseRunning, models.PhaseRunning)
	m.IncRest("")

	assert.Equal(t, 2.0, counterValue(t, m, "liftlog_session_transitions_total", map[string]string{"from": "paused", "to": "running"}))
	assert.Equal(t, 0.0, counterValue(t, m, "liftlog_session_transitions_total", map[string]string{"from": "running", "to": "running"}))
	assert.Equal(t, 1.0, counterValue(t, m, "liftlog_rest_started_total", map[string]string{"type": "unknown"}))
}

// counterValue gathers the registry and returns the counter with exactly the
// given labels, or zero when it has not been recorded.
func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			if len(metric.GetLabel()) != len(labels) {
				continue
			}
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

// TestHandlerExposition verifies the registry is served in text format.
func TestHandlerExposition(t *testing.T) {
	m := New()
	m.IncPersistFailure("activeWorkout")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `liftlog_persist_failures_total{key="activeWorkout"} 1`))
}

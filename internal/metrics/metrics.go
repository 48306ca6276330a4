// Package metrics holds the Prometheus collectors for the tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/liftlog/internal/models"
)

// Metrics collects Prometheus counters and histograms for liftlog.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry               *prometheus.Registry
	sessionTransitions     *prometheus.CounterVec
	sessionDurationSeconds prometheus.Histogram
	sessionsCompleted      prometheus.Counter
	restsTotal             *prometheus.CounterVec
	persistFailures        *prometheus.CounterVec
	persistWriteSeconds    prometheus.Histogram
	decodeInvalid          *prometheus.CounterVec
}

// New constructs a metrics registry and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	sessionTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftlog",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Total number of workout session phase transitions.",
		},
		[]string{"from", "to"},
	)
	sessionDurationSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "liftlog",
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Recorded duration of finished workout sessions.",
			Buckets:   []float64{300, 600, 1200, 1800, 2700, 3600, 5400, 7200, 10800},
		},
	)
	sessionsCompleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "liftlog",
			Subsystem: "session",
			Name:      "all_sets_completed_total",
			Help:      "Times a session reached every set complete.",
		},
	)
	restsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftlog",
			Subsystem: "rest",
			Name:      "started_total",
			Help:      "Total rests started, by rest type.",
		},
		[]string{"type"},
	)
	persistFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftlog",
			Subsystem: "persist",
			Name:      "failures_total",
			Help:      "Durable store writes that failed and were dropped.",
		},
		[]string{"key"},
	)
	persistWriteSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "liftlog",
			Subsystem: "persist",
			Name:      "write_duration_seconds",
			Help:      "Time spent applying one batch to the durable store.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)
	decodeInvalid := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftlog",
			Subsystem: "persist",
			Name:      "decode_invalid_total",
			Help:      "Stored values replaced by defaults because they could not be decoded.",
		},
		[]string{"key"},
	)

	registry.MustRegister(
		sessionTransitions,
		sessionDurationSeconds,
		sessionsCompleted,
		restsTotal,
		persistFailures,
		persistWriteSeconds,
		decodeInvalid,
	)

	return &Metrics{
		registry:               registry,
		sessionTransitions:     sessionTransitions,
		sessionDurationSeconds: sessionDurationSeconds,
		sessionsCompleted:      sessionsCompleted,
		restsTotal:             restsTotal,
		persistFailures:        persistFailures,
		persistWriteSeconds:    persistWriteSeconds,
		decodeInvalid:          decodeInvalid,
	}
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncTransition(from, to models.Phase) {
	if m == nil || from == to {
		return
	}
	m.sessionTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) ObserveSessionDuration(d time.Duration) {
	if m == nil {
		return
	}
	seconds := d.Seconds()
	if seconds < 0 {
		return
	}
	m.sessionDurationSeconds.Observe(seconds)
}

func (m *Metrics) IncSessionComplete() {
	if m == nil {
		return
	}
	m.sessionsCompleted.Inc()
}

func (m *Metrics) IncRest(kind models.RestType) {
	if m == nil {
		return
	}
	label := string(kind)
	if label == "" {
		label = "unknown"
	}
	m.restsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncPersistFailure(key string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(key).Inc()
}

func (m *Metrics) ObservePersistWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.persistWriteSeconds.Observe(d.Seconds())
}

func (m *Metrics) IncDecodeInvalid(key string) {
	if m == nil {
		return
	}
	m.decodeInvalid.WithLabelValues(key).Inc()
}

// Package tracker is the session store façade: it owns the canonical
// in-memory workout state, persists every change through a background
// writer, and runs the per-second display loops.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/persist"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/timer"
)

var (
	ErrUnknownTemplate = errors.New("unknown workout template")
	ErrNoActiveSession = errors.New("no active workout session")
	ErrInvalidWorkout  = errors.New("invalid workout payload")
	ErrUnknownExercise = errors.New("unknown exercise or set")
	ErrInvalidDuration = errors.New("duration must be positive")
)

// DefaultTickInterval is the display refresh period of the timer loops.
const DefaultTickInterval = time.Second

// Options configures a Tracker. Zero values select defaults.
type Options struct {
	Clock   timer.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// TickInterval is the display loop period. Negative disables the loops.
	TickInterval time.Duration
	// WriteTimeout bounds each durable store write.
	WriteTimeout time.Duration

	// Rest durations used when a template leaves them unset.
	DefaultSetRest      int
	DefaultExerciseRest int

	// OnSessionComplete is called, outside the tracker lock, each time the
	// active session enters the all-sets-complete state.
	OnSessionComplete func(models.SessionView)
}

// Tracker is safe for concurrent use. Every method except New, Load and
// Close panics if called before Load.
type Tracker struct {
	store   kv.Store
	writer  *persist.Writer
	clock   timer.Clock
	log     *slog.Logger
	metrics *metrics.Metrics
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	loaded     bool
	closed     bool
	foreground bool
	templates  []models.WorkoutTemplate
	history    []models.CompletedSession
	state      session.State
	signals    int
	pending    []models.SessionView

	workoutLoop *timer.Loop
	restLoop    *timer.Loop
	workoutGen  uint64
	restGen     uint64
}

// New creates a Tracker over store. Call Load before anything else.
func New(store kv.Store, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = timer.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = DefaultTickInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		store:      store,
		writer:     persist.NewWriter(store, opts.Logger, opts.Metrics, opts.WriteTimeout),
		clock:      opts.Clock,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		foreground: true,
	}
}

// Load reads templates, history and the active session from the store and
// re-derives both timers before any state is exposed. Missing or malformed
// stored values are replaced by defaults; Load never fails.
func (t *Tracker) Load(ctx context.Context) {
	values, err := t.store.MultiGet(ctx, persist.AllKeys)
	if err != nil {
		t.log.Error("loading stored state failed, starting empty", "error", err)
		values = map[string]string{}
	}
	get := func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}

	t.mu.Lock()
	defer t.unlock()

	now := t.clock.Now()
	templates := persist.DecodeTemplates(get(persist.KeyWorkouts))
	history := persist.DecodeHistory(get(persist.KeyHistory))
	active := persist.DecodeActive(get(persist.KeyActiveWorkout))
	timing := persist.DecodeTiming(values)
	rest := persist.DecodeRest(values, now)
	report(t, persist.KeyWorkouts, templates)
	report(t, persist.KeyHistory, history)
	report(t, persist.KeyActiveWorkout, active)
	report(t, persist.KeyWorkoutTimerData, timing)
	report(t, persist.KeyRestTimerData, rest)

	t.templates = templates.Or(nil)
	if t.templates == nil {
		t.templates = []models.WorkoutTemplate{}
	}
	t.history = history.Or(nil)
	if t.history == nil {
		t.history = []models.CompletedSession{}
	}
	t.state = session.Restore(active.Or(nil), timing.Value, rest.Or(models.RestState{}))
	t.loaded = true

	t.dispatch(session.Resume{})
	t.log.Info("tracker loaded",
		"templates", len(t.templates),
		"history", len(t.history),
		"phase", t.state.Phase(),
	)
}

func report[T any](t *Tracker, key string, r persist.Result[T]) {
	switch {
	case r.Status == persist.Invalid:
		t.metrics.IncDecodeInvalid(key)
		t.log.Warn("stored value unreadable, using default", "key", key, "error", r.Err)
	case r.Err != nil:
		t.metrics.IncDecodeInvalid(key)
		t.log.Warn("stored value partly unreadable", "key", key, "error", r.Err)
	}
	if r.Dropped > 0 {
		t.log.Warn("dropped unreadable stored entries", "key", key, "count", r.Dropped)
	}
}

// Close stops the display loops, writes the final timer state and drains
// pending writes. It does not close the store.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.loaded {
		t.saveTimerStates(t.clock.Now())
	}
	loops := []*timer.Loop{t.workoutLoop, t.restLoop}
	t.stopWorkoutLoop()
	t.stopRestLoop()
	t.cancel()
	t.mu.Unlock()

	for _, l := range loops {
		l.Wait()
	}
	t.writer.Close()
}

// Foreground handles the app regaining focus: timers are re-derived from
// their anchors before the display loops restart.
func (t *Tracker) Foreground() {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	t.foreground = true
	t.dispatch(session.Resume{})
}

// Background handles the app losing focus: timer state is written and the
// display loops stop. The workout keeps counting through its anchor.
func (t *Tracker) Background() {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	t.foreground = false
	t.dispatch(session.Tick{})
	t.saveTimerStates(t.clock.Now())
}

func (t *Tracker) saveTimerStates(now time.Time) {
	ops := persist.TimingOps(t.state.Timing)
	ops = append(ops, persist.RestOps(t.state.Rest, now)...)
	t.writer.Submit(ops)
}

// Flush waits until every change made so far has been handed to the store.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.writer.Flush(ctx)
}

func (t *Tracker) mustLoad() {
	if !t.loaded {
		panic("tracker: used before Load")
	}
}

// unlock releases the lock and then runs completion callbacks queued while
// it was held.
func (t *Tracker) unlock() {
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	if t.opts.OnSessionComplete == nil {
		return
	}
	for _, v := range pending {
		t.opts.OnSessionComplete(v)
	}
}

// dispatch applies ev to the canonical state, then records, persists and
// reschedules loops as the effects require. Callers hold t.mu.
func (t *Tracker) dispatch(ev session.Event) session.Effects {
	now := t.clock.Now()
	next, eff := session.Reduce(t.state, ev, now)
	t.state = next

	if eff.Template != nil {
		for i := range t.templates {
			if t.templates[i].ID == eff.Template.ID {
				t.templates[i] = *eff.Template
			}
		}
	}
	if eff.Record != nil {
		t.history = append(t.history, *eff.Record)
		t.metrics.ObserveSessionDuration(time.Duration(eff.Record.Duration) * time.Second)
		t.log.Info("workout finished",
			"template", eff.Record.OriginalID,
			"duration_s", eff.Record.Duration,
		)
	}
	if eff.From != eff.To {
		t.metrics.IncTransition(eff.From, eff.To)
		t.log.Debug("session transition", "event", session.Name(ev), "from", eff.From, "to", eff.To)
	}
	if eff.RestStarted {
		t.metrics.IncRest(eff.RestType)
		t.log.Debug("rest started", "type", eff.RestType, "duration_s", t.state.Rest.Duration)
	}
	if eff.RestExpired {
		t.log.Debug("rest finished")
	}
	if eff.SessionComplete {
		t.signals++
		t.metrics.IncSessionComplete()
		t.pending = append(t.pending, t.viewLocked(now))
		t.log.Info("all sets completed", "template", t.state.Active.TemplateID)
	}

	t.persist(eff, now)
	t.syncLoops()
	return eff
}

func (t *Tracker) persist(eff session.Effects, now time.Time) {
	var ops []kv.Op
	add := func(more []kv.Op, err error) {
		if err != nil {
			t.log.Error("encoding state failed", "error", err)
			return
		}
		ops = append(ops, more...)
	}
	if eff.Changed.Has(session.DirtyTemplates) {
		add(persist.TemplatesOps(t.templates))
	}
	if eff.Changed.Has(session.DirtyHistory) {
		add(persist.HistoryOps(t.history))
	}
	if eff.Changed.Has(session.DirtyActive) {
		add(persist.ActiveOps(t.state.Active))
	}
	if eff.Changed.Has(session.DirtyTiming) {
		ops = append(ops, persist.TimingOps(t.state.Timing)...)
	}
	if eff.Changed.Has(session.DirtyRest) {
		ops = append(ops, persist.RestOps(t.state.Rest, now)...)
	}
	t.writer.Submit(ops)
}

func (t *Tracker) persistTemplates() {
	ops, err := persist.TemplatesOps(t.templates)
	if err != nil {
		t.log.Error("encoding templates failed", "error", err)
		return
	}
	t.writer.Submit(ops)
}

// syncLoops starts or stops each display loop so that it runs exactly while
// its governing condition holds.
func (t *Tracker) syncLoops() {
	live := !t.closed && t.foreground && t.opts.TickInterval > 0
	wantWorkout := live && t.state.Active != nil && t.state.Timing.IsRunning
	wantRest := live && t.state.Rest.IsResting

	switch {
	case wantWorkout && t.workoutLoop == nil:
		t.workoutGen++
		gen := t.workoutGen
		t.workoutLoop = timer.StartLoop(t.ctx, t.opts.TickInterval, func() bool { return t.tick(gen, true) })
	case !wantWorkout && t.workoutLoop != nil:
		t.stopWorkoutLoop()
	}

	switch {
	case wantRest && t.restLoop == nil:
		t.restGen++
		gen := t.restGen
		t.restLoop = timer.StartLoop(t.ctx, t.opts.TickInterval, func() bool { return t.tick(gen, false) })
	case !wantRest && t.restLoop != nil:
		t.stopRestLoop()
	}
}

func (t *Tracker) stopWorkoutLoop() {
	t.workoutLoop.Stop()
	t.workoutLoop = nil
	t.workoutGen++
}

func (t *Tracker) stopRestLoop() {
	t.restLoop.Stop()
	t.restLoop = nil
	t.restGen++
}

// tick is the body of both display loops. A loop whose generation is stale
// has been cancelled and exits without touching state.
func (t *Tracker) tick(gen uint64, workout bool) bool {
	t.mu.Lock()
	defer t.unlock()
	if (workout && gen != t.workoutGen) || (!workout && gen != t.restGen) {
		return false
	}
	t.dispatch(session.Tick{})
	if workout {
		return gen == t.workoutGen
	}
	return gen == t.restGen
}

package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/persist"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/timer"
)

// Workouts returns a copy of the template collection.
func (t *Tracker) Workouts() []models.WorkoutTemplate {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	out := make([]models.WorkoutTemplate, len(t.templates))
	for i, tmpl := range t.templates {
		out[i] = tmpl.Clone()
	}
	return out
}

// Workout returns the template with the given id.
func (t *Tracker) Workout(id string) (models.WorkoutTemplate, bool) {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	tmpl, ok := t.findTemplate(id)
	return tmpl, ok
}

// Summaries returns every template with the time it was last completed.
func (t *Tracker) Summaries() []models.TemplateSummary {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()

	last := make(map[string]time.Time)
	for _, rec := range t.history {
		if rec.CompletedAt.After(last[rec.OriginalID]) {
			last[rec.OriginalID] = rec.CompletedAt
		}
	}
	out := make([]models.TemplateSummary, len(t.templates))
	for i, tmpl := range t.templates {
		out[i] = models.TemplateSummary{WorkoutTemplate: tmpl.Clone()}
		if at, ok := last[tmpl.ID]; ok {
			at := at
			out[i].LastCompletedAt = &at
		}
	}
	return out
}

// History returns a copy of every completed session in completion order.
func (t *Tracker) History() []models.CompletedSession {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	out := make([]models.CompletedSession, len(t.history))
	for i, rec := range t.history {
		out[i] = rec.Clone()
	}
	return out
}

// View returns the live session state with timers evaluated at now.
func (t *Tracker) View() models.SessionView {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	return t.viewLocked(t.clock.Now())
}

func (t *Tracker) viewLocked(now time.Time) models.SessionView {
	timing := timer.RecomputeWorkout(t.state.Timing, now)
	rest, _ := timer.RecomputeRest(t.state.Rest, now)
	v := models.SessionView{
		Phase:             t.state.Phase(),
		Timing:            copyTiming(timing),
		Rest:              copyRest(rest),
		RestRemaining:     timer.RestRemaining(rest, now),
		Complete:          t.state.Latched,
		CompletionSignals: t.signals,
	}
	if t.state.Active != nil {
		active := t.state.Active.Clone()
		v.Active = &active
	}
	return v
}

func copyTiming(ts models.TimingState) models.TimingState {
	if ts.StartAnchor != nil {
		a := *ts.StartAnchor
		ts.StartAnchor = &a
	}
	return ts
}

func copyRest(rs models.RestState) models.RestState {
	if rs.StartAnchor != nil {
		a := *rs.StartAnchor
		rs.StartAnchor = &a
	}
	return rs
}

// AddWorkout stores a new template under a fresh id and returns it.
func (t *Tracker) AddWorkout(tmpl models.WorkoutTemplate) models.WorkoutTemplate {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()

	tmpl = tmpl.Clone()
	tmpl.ID = uuid.NewString()
	if tmpl.CreatedAt == "" {
		tmpl.CreatedAt = t.clock.Now().UTC().Format(time.RFC3339)
	}
	assignExerciseIDs(&tmpl)
	t.templates = append(t.templates, tmpl)
	t.persistTemplates()
	t.log.Info("workout added", "id", tmpl.ID, "title", tmpl.Title)
	return tmpl.Clone()
}

// UpdateWorkout replaces the template with the same id. An active session of
// that template is reshaped to the edit, keeping its progress.
func (t *Tracker) UpdateWorkout(tmpl models.WorkoutTemplate) (models.WorkoutTemplate, error) {
	if strings.TrimSpace(tmpl.ID) == "" {
		return models.WorkoutTemplate{}, ErrInvalidWorkout
	}
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()

	i := t.templateIndex(tmpl.ID)
	if i < 0 {
		return models.WorkoutTemplate{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, tmpl.ID)
	}
	tmpl = tmpl.Clone()
	if tmpl.CreatedAt == "" {
		tmpl.CreatedAt = t.templates[i].CreatedAt
	}
	assignExerciseIDs(&tmpl)
	t.templates[i] = tmpl
	t.persistTemplates()
	t.dispatch(session.Reshape{Template: tmpl})
	return tmpl.Clone(), nil
}

// DeleteWorkout removes a template. History and any active session of the
// template are left as they are.
func (t *Tracker) DeleteWorkout(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidWorkout
	}
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()

	i := t.templateIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	t.templates = append(t.templates[:i:i], t.templates[i+1:]...)
	t.persistTemplates()
	t.log.Info("workout deleted", "id", id)
	return nil
}

// SetActiveWorkout replaces any active session with a fresh, paused session
// of the template, prefilled from its most recent completed session. The
// template is looked up in memory first and then in the store; an id found
// in neither returns ErrUnknownTemplate and leaves state untouched.
func (t *Tracker) SetActiveWorkout(ctx context.Context, id string) (models.ActiveSession, error) {
	if strings.TrimSpace(id) == "" {
		return models.ActiveSession{}, ErrInvalidWorkout
	}
	t.mu.Lock()
	t.mustLoad()
	_, found := t.findTemplate(id)
	t.unlock()

	var stored *models.WorkoutTemplate
	if !found {
		tmpl, err := t.storedTemplate(ctx, id)
		if err != nil {
			return models.ActiveSession{}, err
		}
		if tmpl == nil {
			return models.ActiveSession{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
		}
		stored = tmpl
	}

	last, err := t.GetLastSession(ctx, id)
	if err != nil {
		return models.ActiveSession{}, err
	}

	t.mu.Lock()
	defer t.unlock()
	tmpl, ok := t.findTemplate(id)
	if !ok {
		if stored == nil {
			return models.ActiveSession{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
		}
		tmpl = *stored
	}
	if prev := t.state.Active; prev != nil && prev.TemplateID != id {
		t.log.Warn("replacing active session", "previous", prev.TemplateID, "next", id)
	}
	t.dispatch(session.Activate{
		Template:            tmpl,
		Last:                last,
		DefaultSetRest:      t.opts.DefaultSetRest,
		DefaultExerciseRest: t.opts.DefaultExerciseRest,
	})
	return t.state.Active.Clone(), nil
}

// storedTemplate re-reads the template collection from the store.
func (t *Tracker) storedTemplate(ctx context.Context, id string) (*models.WorkoutTemplate, error) {
	if err := t.writer.Flush(ctx); err != nil {
		return nil, err
	}
	raw, present, err := t.store.Get(ctx, persist.KeyWorkouts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.log.Warn("reading stored templates failed", "error", err)
		return nil, nil
	}
	r := persist.DecodeTemplates(raw, present)
	report(t, persist.KeyWorkouts, r)
	for _, tmpl := range r.Value {
		if tmpl.ID == id {
			return &tmpl, nil
		}
	}
	return nil, nil
}

// GetLastSession returns the most recent completed session of a template, or
// nil. History is re-read from the store after pending writes are flushed;
// the in-memory copy is used only when the stored value cannot be read.
func (t *Tracker) GetLastSession(ctx context.Context, templateID string) (*models.CompletedSession, error) {
	t.mu.Lock()
	t.mustLoad()
	t.unlock()
	if templateID == "" {
		return nil, nil
	}

	if err := t.writer.Flush(ctx); err != nil {
		return nil, err
	}
	history, err := t.storedHistory(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.log.Warn("reading stored history failed, using memory", "error", err)
		history = t.History()
	}
	return lastSession(history, templateID), nil
}

func (t *Tracker) storedHistory(ctx context.Context) ([]models.CompletedSession, error) {
	raw, present, err := t.store.Get(ctx, persist.KeyHistory)
	if err != nil {
		return nil, err
	}
	r := persist.DecodeHistory(raw, present)
	report(t, persist.KeyHistory, r)
	if r.Status == persist.Invalid {
		return nil, r.Err
	}
	return r.Value, nil
}

func lastSession(history []models.CompletedSession, templateID string) *models.CompletedSession {
	var best *models.CompletedSession
	for i := range history {
		rec := &history[i]
		if rec.OriginalID != templateID {
			continue
		}
		if best == nil || !rec.CompletedAt.Before(best.CompletedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil
	}
	out := best.Clone()
	return &out
}

// StartWorkout runs the stopwatch of the active session.
func (t *Tracker) StartWorkout() error {
	return t.sessionOp(session.Start{})
}

// PauseWorkout freezes the stopwatch of the active session.
func (t *Tracker) PauseWorkout() error {
	return t.sessionOp(session.Pause{})
}

// Cancel ends the active session without writing history.
func (t *Tracker) Cancel() error {
	return t.sessionOp(session.Cancel{})
}

// FinishWorkout appends the active session to history, folds edited
// exercises back onto its template and clears the session.
func (t *Tracker) FinishWorkout() (models.CompletedSession, error) {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	if t.state.Active == nil {
		return models.CompletedSession{}, ErrNoActiveSession
	}
	var stored *models.WorkoutTemplate
	if tmpl, ok := t.findTemplate(t.state.Active.TemplateID); ok {
		stored = &tmpl
	}
	eff := t.dispatch(session.Finish{Template: stored})
	return eff.Record.Clone(), nil
}

// MarkSetCompleted toggles a set. Completing a set starts a set rest, or an
// exercise rest when it was the exercise's last incomplete set.
func (t *Tracker) MarkSetCompleted(exerciseID string, set int) error {
	return t.targetOp(session.MarkSet{ExerciseID: exerciseID, Set: set})
}

// UpdateReps moves a set's recorded reps by +1 or -1, floored at zero.
func (t *Tracker) UpdateReps(exerciseID string, set, delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("%w: reps change must be +1 or -1", ErrInvalidWorkout)
	}
	return t.targetOp(session.AdjustReps{ExerciseID: exerciseID, Set: set, Delta: delta})
}

// StartRest begins a rest countdown.
func (t *Tracker) StartRest(kind models.RestType, seconds int) error {
	if seconds <= 0 {
		return ErrInvalidDuration
	}
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	t.dispatch(session.StartRest{Type: kind, Duration: seconds})
	return nil
}

// SkipRest clears any rest.
func (t *Tracker) SkipRest() {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	t.dispatch(session.SkipRest{})
}

// SetWorkoutTimer overrides the stopwatch value, re-anchoring a running clock.
func (t *Tracker) SetWorkoutTimer(seconds int) {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	t.dispatch(session.SetElapsed{Seconds: seconds})
}

func (t *Tracker) sessionOp(ev session.Event) error {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	if t.state.Active == nil {
		return ErrNoActiveSession
	}
	t.dispatch(ev)
	return nil
}

func (t *Tracker) targetOp(ev session.Event) error {
	t.mu.Lock()
	defer t.unlock()
	t.mustLoad()
	if t.state.Active == nil {
		return ErrNoActiveSession
	}
	if eff := t.dispatch(ev); eff.Changed == 0 {
		return ErrUnknownExercise
	}
	return nil
}

func (t *Tracker) findTemplate(id string) (models.WorkoutTemplate, bool) {
	if i := t.templateIndex(id); i >= 0 {
		return t.templates[i].Clone(), true
	}
	return models.WorkoutTemplate{}, false
}

func (t *Tracker) templateIndex(id string) int {
	for i, tmpl := range t.templates {
		if tmpl.ID == id {
			return i
		}
	}
	return -1
}

func assignExerciseIDs(tmpl *models.WorkoutTemplate) {
	for i := range tmpl.Exercises {
		if strings.TrimSpace(tmpl.Exercises[i].ID) == "" {
			tmpl.Exercises[i].ID = uuid.NewString()
		}
	}
}

// ListWorkouts returns template summaries sorted by title.
func (t *Tracker) ListWorkouts(ctx context.Context) ([]models.TemplateSummary, error) {
	out := t.Summaries()
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out, ctx.Err()
}

// CurrentSession returns the live session view.
func (t *Tracker) CurrentSession(ctx context.Context) (models.SessionView, error) {
	return t.View(), ctx.Err()
}

// QueryHistory returns completed sessions in [start, end], oldest first,
// optionally restricted to one template.
func (t *Tracker) QueryHistory(ctx context.Context, start, end time.Time, templateID string) ([]models.CompletedSession, error) {
	var out []models.CompletedSession
	for _, rec := range t.History() {
		if rec.CompletedAt.Before(start) || rec.CompletedAt.After(end) {
			continue
		}
		if templateID != "" && rec.OriginalID != templateID {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, ctx.Err()
}

package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Status classifies a decoded stored value.
type Status int

const (
	Absent Status = iota
	Ok
	Invalid
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "ok"
	case Invalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Result is the outcome of decoding one stored value. Value holds the decoded
// value when Status is Ok and the zero value otherwise. Dropped counts
// collection elements skipped because they could not be decoded. Err may
// accompany Ok when part of a composite value was unreadable and defaulted.
type Result[T any] struct {
	Value   T
	Status  Status
	Err     error
	Dropped int
}

// Or returns Value when Status is Ok, otherwise def.
func (r Result[T]) Or(def T) T {
	if r.Status == Ok {
		return r.Value
	}
	return def
}

func ok[T any](v T) Result[T] { return Result[T]{Value: v, Status: Ok} }

func invalid[T any](err error) Result[T] { return Result[T]{Status: Invalid, Err: err} }

var errNotArray = errors.New("not a JSON array")

// flexInt accepts a JSON number, a numeric string, or null. Anything else
// decodes as zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	*f = 0
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		s = strings.TrimSpace(s)
		if i, err := strconv.Atoi(s); err == nil {
			*f = flexInt(i)
		} else if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = flexInt(v)
		}
	}
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	*f = ""
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
	}
	return nil
}

// flexBool accepts a JSON bool or the strings "true"/"false".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	*f = false
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexBool(strings.EqualFold(strings.TrimSpace(s), "true"))
	}
	return nil
}

// flexTime accepts an RFC 3339 string or epoch milliseconds.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	*f = flexTime{}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*f = flexTime(t)
		}
		return nil
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil && ms > 0 {
		*f = flexTime(time.UnixMilli(int64(ms)).UTC())
	}
	return nil
}

func ints(in []flexInt) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = max(0, int(v))
	}
	return out
}

func bools(in []flexBool) []bool {
	if in == nil {
		return nil
	}
	out := make([]bool, len(in))
	for i, v := range in {
		out[i] = bool(v)
	}
	return out
}

func positive(v flexInt, fallback int) int {
	if v > 0 {
		return int(v)
	}
	return fallback
}

func fit[T any](in []T, n int) []T {
	out := make([]T, n)
	copy(out, in)
	return out
}

// elements splits a JSON array into raw elements.
func elements(raw string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotArray
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, err
	}
	return elems, nil
}

// object decodes raw into v only when raw is a JSON object.
func object(raw []byte, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("not a JSON object")
	}
	return json.Unmarshal(trimmed, v)
}

type wireExerciseSpec struct {
	ID   flexString `json:"id"`
	Name flexString `json:"name"`
	Sets flexInt    `json:"sets"`
	Reps flexInt    `json:"reps"`
}

type wireTemplate struct {
	ID           flexString        `json:"id"`
	Title        flexString        `json:"title"`
	TotalTime    flexInt           `json:"totalTime"`
	ExerciseRest flexInt           `json:"exerciseRest"`
	SetRest      flexInt           `json:"setRest"`
	Exercises    []json.RawMessage `json:"exercises"`
	CreatedAt    flexString        `json:"createdAt"`
}

func (w wireTemplate) model() models.WorkoutTemplate {
	t := models.WorkoutTemplate{
		ID:           string(w.ID),
		Title:        string(w.Title),
		TotalTime:    max(0, int(w.TotalTime)),
		ExerciseRest: max(0, int(w.ExerciseRest)),
		SetRest:      max(0, int(w.SetRest)),
		Exercises:    make([]models.ExerciseSpec, 0, len(w.Exercises)),
		CreatedAt:    string(w.CreatedAt),
	}
	for i, raw := range w.Exercises {
		var ex wireExerciseSpec
		if err := object(raw, &ex); err != nil {
			continue
		}
		id := string(ex.ID)
		if id == "" {
			id = fmt.Sprintf("%s-%d", t.ID, i)
		}
		t.Exercises = append(t.Exercises, models.ExerciseSpec{
			ID:   id,
			Name: string(ex.Name),
			Sets: positive(ex.Sets, models.DefaultSets),
			Reps: positive(ex.Reps, models.DefaultReps),
		})
	}
	return t
}

// DecodeTemplates decodes the workouts key. Elements that are not objects or
// have no id are dropped.
func DecodeTemplates(raw string, present bool) Result[[]models.WorkoutTemplate] {
	if !present {
		return Result[[]models.WorkoutTemplate]{}
	}
	elems, err := elements(raw)
	if err != nil {
		return invalid[[]models.WorkoutTemplate](err)
	}
	r := ok(make([]models.WorkoutTemplate, 0, len(elems)))
	for _, e := range elems {
		var w wireTemplate
		if err := object(e, &w); err != nil || w.ID == "" {
			r.Dropped++
			continue
		}
		r.Value = append(r.Value, w.model())
	}
	return r
}

// wireProgress accepts the current field names plus the legacy "completed"
// alias for per-set reps.
type wireProgress struct {
	ID              flexString `json:"id"`
	Name            flexString `json:"name"`
	Sets            flexInt    `json:"sets"`
	Reps            flexInt    `json:"reps"`
	CompletedReps   []flexInt  `json:"completedReps"`
	Completed       []flexInt  `json:"completed"`
	SetsCompleted   []flexBool `json:"setsCompleted"`
	LastPerformance []flexInt  `json:"lastPerformance"`
}

func (w wireProgress) model() models.ExerciseProgress {
	reps := w.CompletedReps
	if reps == nil {
		reps = w.Completed
	}
	sets := positive(w.Sets, 0)
	if sets == 0 {
		sets = max(len(reps), len(w.SetsCompleted))
	}
	if sets == 0 {
		sets = models.DefaultSets
	}
	return models.ExerciseProgress{
		ID:              string(w.ID),
		Name:            string(w.Name),
		Sets:            sets,
		Reps:            positive(w.Reps, models.DefaultReps),
		CompletedReps:   fit(ints(reps), sets),
		SetsCompleted:   fit(bools(w.SetsCompleted), sets),
		LastPerformance: ints(w.LastPerformance),
	}
}

// wireSession accepts the legacy "id" alias for templateId.
type wireSession struct {
	TemplateID   flexString        `json:"templateId"`
	ID           flexString        `json:"id"`
	Title        flexString        `json:"title"`
	TotalTime    flexInt           `json:"totalTime"`
	ExerciseRest flexInt           `json:"exerciseRest"`
	SetRest      flexInt           `json:"setRest"`
	Exercises    []json.RawMessage `json:"exercises"`
}

func (w wireSession) model() (models.ActiveSession, int) {
	id := w.TemplateID
	if id == "" {
		id = w.ID
	}
	s := models.ActiveSession{
		TemplateID:   string(id),
		Title:        string(w.Title),
		TotalTime:    max(0, int(w.TotalTime)),
		ExerciseRest: max(0, int(w.ExerciseRest)),
		SetRest:      max(0, int(w.SetRest)),
		Exercises:    make([]models.ExerciseProgress, 0, len(w.Exercises)),
	}
	dropped := 0
	for _, raw := range w.Exercises {
		var ex wireProgress
		if err := object(raw, &ex); err != nil || ex.ID == "" {
			dropped++
			continue
		}
		s.Exercises = append(s.Exercises, ex.model())
	}
	return s, dropped
}

// DecodeActive decodes the activeWorkout key. A session must be an object
// naming its template; per-set arrays are repaired to the exercise's set count.
func DecodeActive(raw string, present bool) Result[*models.ActiveSession] {
	if !present {
		return Result[*models.ActiveSession]{}
	}
	if strings.TrimSpace(raw) == "null" {
		return Result[*models.ActiveSession]{}
	}
	var w wireSession
	if err := object([]byte(raw), &w); err != nil {
		return invalid[*models.ActiveSession](err)
	}
	s, dropped := w.model()
	if s.TemplateID == "" {
		return invalid[*models.ActiveSession](errors.New("session has no template id"))
	}
	r := ok(&s)
	r.Dropped = dropped
	return r
}

type wireCompleted struct {
	wireSession
	CompletedAt flexTime   `json:"completedAt"`
	OriginalID  flexString `json:"originalId"`
	Duration    flexInt    `json:"duration"`
}

// DecodeHistory decodes the workoutHistory key. Records that are not objects
// or cannot be attributed to a template are dropped.
func DecodeHistory(raw string, present bool) Result[[]models.CompletedSession] {
	if !present {
		return Result[[]models.CompletedSession]{}
	}
	elems, err := elements(raw)
	if err != nil {
		return invalid[[]models.CompletedSession](err)
	}
	r := ok(make([]models.CompletedSession, 0, len(elems)))
	for _, e := range elems {
		var w wireCompleted
		if err := object(e, &w); err != nil {
			r.Dropped++
			continue
		}
		s, dropped := w.model()
		r.Dropped += dropped
		orig := string(w.OriginalID)
		if orig == "" {
			orig = s.TemplateID
		}
		if orig == "" {
			r.Dropped++
			continue
		}
		if s.TemplateID == "" {
			s.TemplateID = orig
		}
		r.Value = append(r.Value, models.CompletedSession{
			ActiveSession: s,
			CompletedAt:   time.Time(w.CompletedAt),
			OriginalID:    orig,
			Duration:      max(0, int(w.Duration)),
		})
	}
	return r
}

type wireTimerData struct {
	IsRunning flexBool `json:"isRunning"`
	StartTime flexTime `json:"startTime"`
}

type wireRestData struct {
	IsResting flexBool   `json:"isResting"`
	StartTime flexTime   `json:"startTime"`
	Duration  flexInt    `json:"duration"`
	Type      flexString `json:"type"`
}

// DecodeTiming rebuilds the stopwatch from the workoutTimer,
// isWorkoutRunning and workoutTimerData keys in values. A running anchor in
// workoutTimerData wins; without one, the scalar keys are used as stored.
func DecodeTiming(values map[string]string) Result[models.TimingState] {
	var ts models.TimingState
	var errs []error

	if raw, present := values[KeyWorkoutTimer]; present {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", KeyWorkoutTimer, err))
		}
		ts.ElapsedSeconds = max(0, n)
	}
	if raw, present := values[KeyIsWorkoutRunning]; present {
		var b flexBool
		_ = b.UnmarshalJSON([]byte(strings.TrimSpace(raw)))
		ts.IsRunning = bool(b)
	}
	if raw, present := values[KeyWorkoutTimerData]; present {
		var w wireTimerData
		if err := object([]byte(raw), &w); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", KeyWorkoutTimerData, err))
		} else if bool(w.IsRunning) && !time.Time(w.StartTime).IsZero() {
			anchor := time.Time(w.StartTime)
			ts.IsRunning = true
			ts.StartAnchor = &anchor
		}
	}

	r := ok(ts)
	if len(errs) > 0 {
		r.Err = errors.Join(errs...)
	}
	return r
}

// DecodeRest rebuilds the rest countdown. restTimerData is authoritative. A
// rest recorded only by the scalar keys has no anchor, so it restarts at now
// with the stored remaining seconds.
func DecodeRest(values map[string]string, now time.Time) Result[models.RestState] {
	if raw, present := values[KeyRestTimerData]; present {
		var w wireRestData
		if err := object([]byte(raw), &w); err != nil {
			return invalid[models.RestState](fmt.Errorf("%s: %w", KeyRestTimerData, err))
		}
		start := time.Time(w.StartTime)
		if !bool(w.IsResting) || start.IsZero() || w.Duration <= 0 {
			return ok(models.RestState{})
		}
		return ok(models.RestState{
			IsResting:   true,
			StartAnchor: &start,
			Duration:    int(w.Duration),
			Type:        restType(string(w.Type)),
		})
	}

	var resting flexBool
	_ = resting.UnmarshalJSON([]byte(strings.TrimSpace(values[KeyIsResting])))
	remaining, _ := strconv.Atoi(strings.TrimSpace(values[KeyRestTimer]))
	if !bool(resting) || remaining <= 0 {
		return ok(models.RestState{})
	}
	anchor := now
	return ok(models.RestState{
		IsResting:   true,
		StartAnchor: &anchor,
		Duration:    remaining,
		Type:        restType(values[KeyRestType]),
	})
}

func restType(s string) models.RestType {
	t := models.RestType(strings.TrimSpace(s))
	if t.Valid() {
		return t
	}
	return models.RestNone
}

package persist

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/timer"
)

type timerData struct {
	IsRunning bool  `json:"isRunning"`
	StartTime int64 `json:"startTime"`
}

type restData struct {
	IsResting bool            `json:"isResting"`
	StartTime int64           `json:"startTime"`
	Duration  int             `json:"duration"`
	Type      models.RestType `json:"type"`
}

// TemplatesOps writes the whole template collection as one value.
func TemplatesOps(templates []models.WorkoutTemplate) ([]kv.Op, error) {
	if templates == nil {
		templates = []models.WorkoutTemplate{}
	}
	b, err := json.Marshal(templates)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", KeyWorkouts, err)
	}
	return []kv.Op{kv.Set(KeyWorkouts, string(b))}, nil
}

// HistoryOps writes the whole history collection as one value.
func HistoryOps(history []models.CompletedSession) ([]kv.Op, error) {
	if history == nil {
		history = []models.CompletedSession{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", KeyHistory, err)
	}
	return []kv.Op{kv.Set(KeyHistory, string(b))}, nil
}

// ActiveOps writes the active session, or removes the key when there is none.
func ActiveOps(active *models.ActiveSession) ([]kv.Op, error) {
	if active == nil {
		return []kv.Op{kv.Remove(KeyActiveWorkout)}, nil
	}
	b, err := json.Marshal(active)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", KeyActiveWorkout, err)
	}
	return []kv.Op{kv.Set(KeyActiveWorkout, string(b))}, nil
}

// TimingOps writes the stopwatch. The anchor record exists only while running.
func TimingOps(ts models.TimingState) []kv.Op {
	ops := []kv.Op{
		kv.Set(KeyWorkoutTimer, strconv.Itoa(ts.ElapsedSeconds)),
		kv.Set(KeyIsWorkoutRunning, strconv.FormatBool(ts.IsRunning)),
	}
	if !ts.IsRunning || ts.StartAnchor == nil {
		return append(ops, kv.Remove(KeyWorkoutTimerData))
	}
	b, _ := json.Marshal(timerData{IsRunning: true, StartTime: ts.StartAnchor.UnixMilli()})
	return append(ops, kv.Set(KeyWorkoutTimerData, string(b)))
}

// RestOps writes the rest countdown. restTimer holds the remaining seconds at
// now; the anchor record exists only while resting.
func RestOps(rs models.RestState, now time.Time) []kv.Op {
	ops := []kv.Op{
		kv.Set(KeyRestTimer, strconv.Itoa(timer.RestRemaining(rs, now))),
		kv.Set(KeyIsResting, strconv.FormatBool(rs.IsResting)),
		kv.Set(KeyRestType, string(rs.Type)),
	}
	if !rs.IsResting || rs.StartAnchor == nil {
		return append(ops, kv.Remove(KeyRestTimerData))
	}
	b, _ := json.Marshal(restData{
		IsResting: true,
		StartTime: rs.StartAnchor.UnixMilli(),
		Duration:  rs.Duration,
		Type:      rs.Type,
	})
	return append(ops, kv.Set(KeyRestTimerData, string(b)))
}

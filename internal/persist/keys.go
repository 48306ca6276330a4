// Package persist maps tracker state onto the durable key space and back.
//
// Reading is a strict parse-and-validate boundary: every stored value is
// decoded into a Result that is Ok, Absent or Invalid, and nothing outside
// this package inspects raw stored strings.
package persist

// Durable store keys.
const (
	KeyWorkouts         = "workouts"
	KeyHistory          = "workoutHistory"
	KeyActiveWorkout    = "activeWorkout"
	KeyWorkoutTimer     = "workoutTimer"
	KeyIsWorkoutRunning = "isWorkoutRunning"
	KeyWorkoutTimerData = "workoutTimerData"
	KeyRestTimer        = "restTimer"
	KeyIsResting        = "isResting"
	KeyRestType         = "restType"
	KeyRestTimerData    = "restTimerData"
)

// AllKeys lists every key the tracker reads at load time.
var AllKeys = []string{
	KeyWorkouts,
	KeyHistory,
	KeyActiveWorkout,
	KeyWorkoutTimer,
	KeyIsWorkoutRunning,
	KeyWorkoutTimerData,
	KeyRestTimer,
	KeyIsResting,
	KeyRestType,
	KeyRestTimerData,
}

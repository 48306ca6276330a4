package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/liftlog/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active workout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().State(cmd.Context())
		return showView(v, err)
	},
}

var workoutsCmd = &cobra.Command{
	Use:   "workouts",
	Short: "List workout templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListWorkouts(cmd.Context())
		if err != nil {
			return err
		}
		p := newPrinter()
		if jsonOut {
			return p.json(list)
		}
		p.workouts(list)
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <template-id>",
	Short: "Make a template the active workout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().Activate(cmd.Context(), args[0])
		return showView(v, err)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start or resume the workout timer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().Start(cmd.Context())
		return showView(v, err)
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the workout timer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().Pause(cmd.Context())
		return showView(v, err)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Discard the active workout without saving it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().Cancel(cmd.Context())
		return showView(v, err)
	},
}

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finish the workout and save it to history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		done, err := newClient().Finish(cmd.Context())
		if err != nil {
			return err
		}
		p := newPrinter()
		if jsonOut {
			return p.json(done)
		}
		p.finished(done)
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <exercise> <set>",
	Short: "Toggle a set as completed",
	Long: `Toggle a set as completed.

<exercise> is an exercise id or name from the active workout. <set> counts
from 1. Completing a set starts the matching rest countdown.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		id, set, err := resolveTarget(cmd.Context(), c, args[0], args[1])
		if err != nil {
			return err
		}
		v, err := c.MarkSet(cmd.Context(), id, set)
		return showView(v, err)
	},
}

var repsCmd = &cobra.Command{
	Use:   "reps <exercise> <set> <+1|-1>",
	Short: "Adjust the recorded reps of a set",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := parseDelta(args[2])
		if err != nil {
			return err
		}
		c := newClient()
		id, set, err := resolveTarget(cmd.Context(), c, args[0], args[1])
		if err != nil {
			return err
		}
		v, err := c.AdjustReps(cmd.Context(), id, set, delta)
		return showView(v, err)
	},
}

var restCmd = &cobra.Command{
	Use:   "rest <set|exercise> <seconds>",
	Short: "Start a rest countdown",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := models.RestType(args[0])
		if !kind.Valid() {
			return fmt.Errorf("rest type must be %q or %q", models.RestSet, models.RestExercise)
		}
		secs, err := strconv.Atoi(args[1])
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid rest duration %q", args[1])
		}
		v, err := newClient().StartRest(cmd.Context(), kind, secs)
		return showView(v, err)
	},
}

var skipRestCmd = &cobra.Command{
	Use:   "skip-rest",
	Short: "End the current rest early",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().SkipRest(cmd.Context())
		return showView(v, err)
	},
}

var timerCmd = &cobra.Command{
	Use:   "timer <seconds>",
	Short: "Overwrite the elapsed workout time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs < 0 {
			return fmt.Errorf("invalid elapsed seconds %q", args[0])
		}
		v, err := newClient().SetTimer(cmd.Context(), secs)
		return showView(v, err)
	},
}

var (
	historyDays     int
	historyTemplate string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List completed workouts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		end := time.Now()
		start := end.AddDate(0, 0, -historyDays)
		list, err := newClient().QueryHistory(cmd.Context(), start, end, historyTemplate)
		if err != nil {
			return err
		}
		p := newPrinter()
		if jsonOut {
			return p.json(list)
		}
		p.history(list)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, workoutsCmd, activateCmd, startCmd, pauseCmd, cancelCmd, finishCmd,
		doneCmd, repsCmd, restCmd, skipRestCmd, timerCmd, historyCmd)

	// "-1" must reach reps as an argument, not a flag
	repsCmd.Flags().SetInterspersed(false)

	historyCmd.Flags().IntVar(&historyDays, "days", 30, "How many days back to list")
	historyCmd.Flags().StringVar(&historyTemplate, "template", "", "Only sessions of this template id")
}

func showView(v models.SessionView, err error) error {
	if err != nil {
		return err
	}
	p := newPrinter()
	if jsonOut {
		return p.json(v)
	}
	p.view(v)
	return nil
}

type stateReader interface {
	State(ctx context.Context) (models.SessionView, error)
}

// resolveTarget maps an exercise argument and a 1-based set number onto the
// exercise id and 0-based set index of the active workout.
func resolveTarget(ctx context.Context, c stateReader, exercise, set string) (string, int, error) {
	n, err := strconv.Atoi(set)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("invalid set number %q", set)
	}
	v, err := c.State(ctx)
	if err != nil {
		return "", 0, err
	}
	ex, err := findExercise(v.Active, exercise)
	if err != nil {
		return "", 0, err
	}
	if n > ex.Sets {
		return "", 0, fmt.Errorf("%s has %d sets", ex.Name, ex.Sets)
	}
	return ex.ID, n - 1, nil
}

func findExercise(active *models.ActiveSession, arg string) (models.ExerciseProgress, error) {
	if active == nil {
		return models.ExerciseProgress{}, errors.New("no active workout")
	}
	arg = exerciseLabel(arg)
	for _, ex := range active.Exercises {
		if ex.ID == arg {
			return ex, nil
		}
	}
	var match []models.ExerciseProgress
	for _, ex := range active.Exercises {
		if strings.EqualFold(ex.Name, arg) {
			match = append(match, ex)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return models.ExerciseProgress{}, fmt.Errorf("no exercise %q in %s", arg, active.Title)
	default:
		return models.ExerciseProgress{}, fmt.Errorf("exercise name %q is ambiguous, use its id", arg)
	}
}

func parseDelta(s string) (int, error) {
	switch s {
	case "+1", "1", "+":
		return 1, nil
	case "-1", "-":
		return -1, nil
	}
	return 0, fmt.Errorf("reps change must be +1 or -1, got %q", s)
}

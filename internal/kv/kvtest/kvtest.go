// Package kvtest is a behavioural suite every kv.Store backend must pass.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/liftlog/internal/kv"
)

// Run exercises open() against the kv.Store contract. Each subtest gets a
// fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		v, ok, err := s.Get(ctx, "workouts")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "workoutTimer", "12"))
		require.NoError(t, s.Set(ctx, "workoutTimer", "13"))
		v, ok, err := s.Get(ctx, "workoutTimer")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "13", v)
	})

	t.Run("empty value is present", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "restType", ""))
		_, ok, err := s.Get(ctx, "restType")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("remove", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "activeWorkout", `{"templateId":"a"}`))
		require.NoError(t, s.Remove(ctx, "activeWorkout"))
		require.NoError(t, s.Remove(ctx, "never-set"))
		_, ok, err := s.Get(ctx, "activeWorkout")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("multi get omits absent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "a", "1"))
		require.NoError(t, s.Set(ctx, "c", "3"))
		got, err := s.MultiGet(ctx, []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "c": "3"}, got)
	})

	t.Run("apply in order", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "restTimerData", "{}"))
		err := s.Apply(ctx, []kv.Op{
			kv.Set("isResting", "true"),
			kv.Set("isResting", "false"),
			kv.Remove("restTimerData"),
			kv.Set("restType", ""),
		})
		require.NoError(t, err)
		got, err := s.MultiGet(ctx, []string{"isResting", "restTimerData", "restType"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"isResting": "false", "restType": ""}, got)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.Error(t, s.Set(cctx, "a", "1"))
	})
}

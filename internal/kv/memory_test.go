package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/kv/kvtest"
)

// TestMemoryContract verifies the in-memory store against the shared suite.
func TestMemoryContract(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store { return kv.NewMemory() })
}

// TestMemoryClosed verifies that a closed store rejects every operation.
func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Get(ctx, "a"); !errors.Is(err, kv.ErrClosed) {
		t.Errorf("Get err = %v, want ErrClosed", err)
	}
	if err := m.Set(ctx, "a", "1"); !errors.Is(err, kv.ErrClosed) {
		t.Errorf("Set err = %v, want ErrClosed", err)
	}
}

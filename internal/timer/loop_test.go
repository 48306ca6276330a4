package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestLoopStopHaltsCallbacks verifies that no callback runs after Stop returns
// and the goroutine exits.
func TestLoopStopHaltsCallbacks(t *testing.T) {
	var calls atomic.Int32
	l := StartLoop(context.Background(), 5*time.Millisecond, func() bool {
		calls.Add(1)
		return true
	})

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("loop never ticked")
		case <-time.After(time.Millisecond):
		}
	}

	l.Stop()
	l.Wait()
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("callback ran %d more times after Stop", got-after)
	}
}

// TestLoopEndsWhenCallbackDeclines verifies that returning false ends the loop.
func TestLoopEndsWhenCallbackDeclines(t *testing.T) {
	l := StartLoop(context.Background(), time.Millisecond, func() bool { return false })
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
}

// TestLoopParentCancel verifies that cancelling the parent context ends the loop.
func TestLoopParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := StartLoop(ctx, time.Hour, func() bool { return true })
	cancel()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on parent cancel")
	}
}

// TestNilLoop verifies that a nil loop is inert.
func TestNilLoop(t *testing.T) {
	l := StartLoop(context.Background(), 0, func() bool { return true })
	if l != nil {
		t.Fatal("non-positive interval should return nil")
	}
	l.Stop()
	l.Wait()
	<-l.Done()
}

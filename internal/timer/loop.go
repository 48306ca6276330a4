package timer

import (
	"context"
	"time"
)

// Loop is an owned periodic callback. It runs fn every interval until fn
// returns false, Stop is called, or the parent context is cancelled.
//
// A nil *Loop is valid and behaves as an already-stopped loop.
type Loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartLoop launches fn on its own goroutine. Non-positive intervals return nil.
func StartLoop(ctx context.Context, interval time.Duration, fn func() bool) *Loop {
	if interval <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Loop{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(l.done)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				if !fn() {
					return
				}
			}
		}
	}()
	return l
}

// Stop cancels the loop without waiting for it to exit. It is safe to call
// while holding a lock that fn also acquires.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	l.cancel()
}

// Wait blocks until the loop goroutine has exited.
func (l *Loop) Wait() {
	if l == nil {
		return
	}
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	if l == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return l.done
}

package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/metrics"
)

// DefaultWriteTimeout bounds each batch applied by a Writer.
const DefaultWriteTimeout = 5 * time.Second

type job struct {
	ops  []kv.Op
	done chan struct{}
}

// Writer applies batches to a kv.Store on one background goroutine, in
// submission order. Submit never blocks on I/O. Failed writes are logged,
// counted and dropped; the next successful write of the same key reconciles.
type Writer struct {
	store   kv.Store
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.Mutex
	queue  []job
	closed bool
	wake   chan struct{}
	exited chan struct{}
}

// NewWriter starts a Writer. A non-positive timeout uses DefaultWriteTimeout.
func NewWriter(store kv.Store, log *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Writer {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	w := &Writer{
		store:   store,
		log:     log,
		metrics: m,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		exited:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues ops for writing. Empty batches and submissions after Close
// are ignored.
func (w *Writer) Submit(ops []kv.Op) {
	if len(ops) == 0 {
		return
	}
	w.enqueue(job{ops: ops})
}

// Flush blocks until every batch submitted before the call has been attempted,
// or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !w.enqueue(job{done: done}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, drains the queue and waits for the goroutine.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
	<-w.exited
}

func (w *Writer) enqueue(j job) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		if j.ops != nil {
			w.log.Warn("persist write after close dropped", "keys", keys(j.ops))
		}
		return false
	}
	w.queue = append(w.queue, j)
	w.mu.Unlock()
	w.signal()
	return true
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) run() {
	defer close(w.exited)
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			closed := w.closed
			w.mu.Unlock()
			if closed {
				return
			}
			<-w.wake
			continue
		}
		j := w.queue[0]
		w.queue[0] = job{}
		w.queue = w.queue[1:]
		w.mu.Unlock()

		if len(j.ops) > 0 {
			w.apply(j.ops)
		}
		if j.done != nil {
			close(j.done)
		}
	}
}

func (w *Writer) apply(ops []kv.Op) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	err := w.store.Apply(ctx, ops)
	w.metrics.ObservePersistWrite(time.Since(start))
	if err != nil {
		for _, op := range ops {
			w.metrics.IncPersistFailure(op.Key)
		}
		w.log.Error("persist write failed", "keys", keys(ops), "error", err)
		return
	}
	w.log.Debug("persisted", "keys", keys(ops))
}

func keys(ops []kv.Op) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Key
	}
	return out
}

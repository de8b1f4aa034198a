package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Worker drains the buffer into the sink in batches. A failed batch goes back
// to the front of the buffer and is retried on the next tick.
type Worker struct {
	buffer   *RingBuffer
	sink     Sink
	logger   *slog.Logger
	batch    int
	interval time.Duration
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

func WithFlushInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(buffer *RingBuffer, sink Sink, opts ...WorkerOption) *Worker {
	w := &Worker{
		buffer:   buffer,
		sink:     sink,
		logger:   slog.Default(),
		batch:    defaultBatchSize,
		interval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run flushes on every tick until ctx is done, then makes a final
// best-effort flush with a fresh deadline.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = w.Flush(drainCtx)
			return ctx.Err()
		case <-ticker.C:
			_ = w.Flush(ctx)
		}
	}
}

// Flush writes everything currently buffered. It stops at the first failed
// batch.
func (w *Worker) Flush(ctx context.Context) error {
	for {
		events := w.buffer.DequeueBatch(w.batch)
		if len(events) == 0 {
			return nil
		}
		if err := w.sink.Append(ctx, events...); err != nil {
			w.buffer.Requeue(events)
			w.logger.WarnContext(ctx, "audit flush failed",
				"pending", w.buffer.Len(),
				"dropped", w.buffer.Dropped(),
				"error", err,
			)
			return err
		}
	}
}

package audit

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Recorder fans records into a single worker goroutine through a bounded
// queue. Emit never blocks: when the queue is full the record is dropped and
// counted, which is the accepted best-effort tradeoff for audit delivery.
type Recorder struct {
	queue   chan Record
	sink    Sink
	logger  *zap.Logger
	dropped atomic.Int64
	done    chan struct{}
}

// NewRecorder starts a recorder draining into sink. queueSize bounds the
// number of in-flight records.
func NewRecorder(sink Sink, queueSize int, logger *zap.Logger) *Recorder {
	if queueSize < 1 {
		queueSize = 1
	}
	r := &Recorder{
		queue:  make(chan Record, queueSize),
		sink:   sink,
		logger: logger,
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		// Sink writes run outside any request; give each a bounded budget.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.sink.Write(ctx, rec); err != nil {
			r.logger.Warn("audit sink write failed",
				zap.String("request_id", rec.RequestID),
				zap.String("method", rec.Method),
				zap.String("path", rec.Path),
				zap.Error(err))
		}
		cancel()
	}
}

// Emit queues a record without blocking. Full queue drops the record.
func (r *Recorder) Emit(rec Record) {
	select {
	case r.queue <- rec:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many records were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// CheckHealth reports whether the worker is still draining the queue.
func (r *Recorder) CheckHealth(_ context.Context) error {
	select {
	case <-r.done:
		return errors.New("audit recorder stopped")
	default:
		return nil
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to
// expire.
func (r *Recorder) Close(ctx context.Context) error {
	close(r.queue)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

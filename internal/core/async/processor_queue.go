// Package async runs processing jobs on a fixed-size worker pool so
// submitters never block on completion.
package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kwalker7631/kyo-qa-tool/constants"
	"github.com/kwalker7631/kyo-qa-tool/internal/core"
	"github.com/kwalker7631/kyo-qa-tool/internal/job"
	"github.com/kwalker7631/kyo-qa-tool/internal/observability"
)

type ProcessorQueue struct {
	proc    *core.Processor
	store   *job.Store
	metrics *observability.Collector
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc *core.Processor, store *job.Store, metrics *observability.Collector, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		store:   store,
		metrics: metrics,
		logger:  logger,
		workers: 4,
		timeout: 30 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for jb := range q.ch {
					q.runJob(workerID, jb)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// runJob runs one job under a timeout, supervised: a panic inside the
// processor is caught, written into that job's record, and never takes the
// pool down.
func (q *ProcessorQueue) runJob(workerID int, jb Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	if q.metrics != nil {
		q.metrics.JobStarted()
		defer q.metrics.JobFinished()
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("worker panic recovered", "worker_id", workerID, "job_id", jb.JobID, "panic", r)
			if rec, ok := q.store.Get(jb.JobID); ok {
				rec.AppendLog(fmt.Sprintf("Processing aborted by an internal error: %v", r))
				rec.SetStatus(constants.JobStatusError)
			}
		}
	}()

	q.proc.Run(ctx, jb.JobID, jb.Paths)
	q.logger.Info("job processed", "worker_id", workerID, "job_id", jb.JobID,
		"wait_ms", time.Since(jb.SubmittedAt).Milliseconds())
}

// Submit creates a queued job record for the paths and enqueues it, returning
// the job id immediately. The caller never blocks on processing.
func (q *ProcessorQueue) Submit(_ context.Context, paths []string) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return uuid.Nil, fmt.Errorf("queue is shutting down")
	}

	rec := q.store.Create(len(paths))
	if q.metrics != nil {
		q.metrics.JobSubmitted()
	}
	jb := Job{JobID: rec.ID(), Paths: paths, SubmittedAt: time.Now()}

	select {
	case q.ch <- jb:
		q.logger.Info("queued job for processing", "job_id", jb.JobID, "files", len(paths))
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", jb.JobID)
		q.ch <- jb
	}
	return jb.JobID, nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

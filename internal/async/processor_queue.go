package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ingest"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// PathIngestor is the part of the ingestor the queue drives.
type PathIngestor interface {
	IngestPath(ctx context.Context, path string) (ingest.IngestionResult, error)
}

// ProcessorQueue runs ingest jobs on a fixed pool of workers.
type ProcessorQueue struct {
	ingestor PathIngestor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Job, ingest.IngestionResult, error)

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

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHook is called after every job, from the worker goroutine.
func WithResultHook(fn func(Job, ingest.IngestionResult, error)) Option {
	return func(q *ProcessorQueue) {
		q.onResult = fn
	}
}

func NewProcessorQueue(ingestor PathIngestor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		ingestor: ingestor,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
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
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	res, err := q.ingestor.IngestPath(ctx, job.Path)
	cancel()

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
	} else {
		q.logger.Info("processed file successfully",
			"worker_id", workerID,
			"path", job.Path,
			"claim_id", res.ClaimID,
			"deduplicated", res.Deduplicated,
			"waited", time.Since(job.SubmittedAt).Round(time.Millisecond),
		)
	}
	if q.onResult != nil {
		q.onResult(job, res, err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
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

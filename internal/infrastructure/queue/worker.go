package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Handler processes one job type. Returning an error retries the job with
// backoff; wrap it with Permanent to skip the retries.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, job *Job) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	Workers    int
	JobTimeout time.Duration
}

// Worker runs a pool of goroutines that dequeue jobs and dispatch them to
// handlers by job type
type Worker struct {
	queue    Queue
	config   WorkerConfig
	logger   *zap.Logger
	metrics  *Metrics
	handlers map[string]Handler

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewWorker creates a worker pool over queue
func NewWorker(queue Queue, config WorkerConfig, log *zap.Logger, metrics *Metrics) *Worker {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		config:   config,
		logger:   log,
		metrics:  metrics,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job type. Register before Start.
func (w *Worker) Register(jobType string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = h
}

// Start launches the pool
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	if r, ok := w.queue.(interface {
		RecoverExpired(context.Context) (int, error)
	}); ok {
		if _, err := r.RecoverExpired(ctx); err != nil {
			w.logger.Warn("Could not recover expired jobs", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.loop(ctx, i)
	}

	w.logger.Info("Job worker started",
		zap.Int("workers", w.config.Workers),
		zap.Duration("job_timeout", w.config.JobTimeout),
	)
	return nil
}

// Stop stops taking new jobs and waits for in-flight ones to finish, or
// for ctx to expire
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return ErrWorkerNotRunning
	}
	w.isRunning = false
	w.mu.Unlock()

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Job worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Job worker stop timed out")
		return ctx.Err()
	}
}

func (w *Worker) loop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("Dequeue failed", zap.Int("worker_id", workerID), zap.Error(err))
			continue
		}
		w.process(job, workerID)
	}
}

// process runs one job to completion. It deliberately does not inherit the
// pool context so Stop lets in-flight jobs drain.
func (w *Worker) process(job *Job, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.JobTimeout)
	defer cancel()
	ctx = logger.ContextWithTenantID(ctx, job.TenantID.String())

	log := w.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", job.Type),
		zap.String("tenant_id", job.TenantID.String()),
		zap.Int("attempt", job.Attempt+1),
	)

	w.metrics.track(1)
	defer w.metrics.track(-1)
	start := time.Now()

	err := w.run(ctx, job)
	elapsed := time.Since(start).Seconds()

	if err == nil {
		if ackErr := w.queue.Ack(ctx, job); ackErr != nil {
			log.Error("Failed to ack job", zap.Error(ackErr))
		}
		w.metrics.observe(job.Type, OutcomeSuccess, elapsed)
		log.Debug("Job completed")
		return
	}

	if retryErr := w.queue.Retry(ctx, job, err); retryErr != nil {
		log.Error("Failed to reschedule job", zap.Error(retryErr), zap.NamedError("cause", err))
		return
	}
	if IsPermanent(err) || job.Exhausted() {
		w.metrics.observe(job.Type, OutcomeDead, elapsed)
		log.Error("Job moved to dead list", zap.Error(err))
		return
	}
	w.metrics.observe(job.Type, OutcomeRetry, elapsed)
	log.Warn("Job failed, retry scheduled", zap.Error(err), zap.Time("run_at", job.RunAt))
}

func (w *Worker) run(ctx context.Context, job *Job) (err error) {
	w.mu.Lock()
	h, ok := w.handlers[job.Type]
	w.mu.Unlock()
	if !ok {
		return Permanent(fmt.Errorf("no handler registered for job type %q", job.Type))
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	err = h.Handle(ctx, job)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("job timed out after %s: %w", w.config.JobTimeout, err)
	}
	return err
}

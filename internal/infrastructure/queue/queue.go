package queue

import (
	"context"
	"time"
)

// Queue stores jobs until a worker takes them
type Queue interface {
	// Enqueue adds a job. Jobs with RunAt in the future are held back.
	Enqueue(ctx context.Context, job *Job) error
	// Dequeue blocks until a job is due or ctx is done
	Dequeue(ctx context.Context) (*Job, error)
	// Ack removes a finished job
	Ack(ctx context.Context, job *Job) error
	// Retry reschedules a failed job with backoff, or moves it to the dead
	// list once its attempts are used up or cause is permanent
	Retry(ctx context.Context, job *Job, cause error) error
	// Len returns the number of ready and delayed jobs
	Len(ctx context.Context) (int64, error)
	// DeadLen returns the number of dead jobs
	DeadLen(ctx context.Context) (int64, error)
}

const defaultLease = 5 * time.Minute

// Options configure a queue implementation
type Options struct {
	Name         string
	MaxAttempts  int
	Backoff      Backoff
	PollInterval time.Duration
	// Lease is how long a dequeued job stays claimed before another worker
	// may take it over. Keep it above the worker's job timeout.
	Lease time.Duration
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "default"
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Backoff.Base <= 0 {
		o.Backoff = DefaultBackoff()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.Lease <= 0 {
		o.Lease = defaultLease
	}
	return o
}

// prepare stamps defaults onto a job before it is stored
func (o Options) prepare(job *Job) {
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = o.MaxAttempts
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.RunAt.IsZero() {
		job.RunAt = job.CreatedAt
	}
}

// reschedule records the failure and reports whether the job is dead
func (o Options) reschedule(job *Job, cause error) (dead bool) {
	job.Attempt++
	if cause != nil {
		job.LastError = cause.Error()
	}
	if IsPermanent(cause) || job.Exhausted() {
		return true
	}
	job.RunAt = time.Now().Add(o.Backoff.Delay(job.Attempt))
	return false
}

// Package queue is a small at-least-once background job queue with
// exponential-backoff retries. Jobs live in Redis, or in process memory
// when Redis is unavailable.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQueueClosed is returned by Dequeue after Close
	ErrQueueClosed = errors.New("queue is closed")

	// ErrWorkerNotRunning is returned when stopping a worker that never started
	ErrWorkerNotRunning = errors.New("worker is not running")
)

// Job is one unit of background work
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"` // attempts already made
	MaxAttempts int             `json:"max_attempts"`
	RunAt       time.Time       `json:"run_at"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`

	// raw is the exact encoding the job was dequeued as; the Redis queue
	// needs it to remove the in-flight copy.
	raw string
}

// NewJob encodes payload into a job that runs immediately
func NewJob(jobType string, tenantID uuid.UUID, payload any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	now := time.Now()
	return &Job{
		ID:        uuid.New(),
		Type:      jobType,
		TenantID:  tenantID,
		Payload:   data,
		RunAt:     now,
		CreatedAt: now,
	}, nil
}

// Decode unmarshals the payload into v
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode %s payload: %w", j.Type, err))
	}
	return nil
}

// Exhausted reports whether the job has used all of its attempts
func (j *Job) Exhausted() bool {
	return j.MaxAttempts > 0 && j.Attempt >= j.MaxAttempts
}

func (j *Job) encode() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("encode job %s: %w", j.ID, err)
	}
	return string(data), nil
}

func decodeJob(raw string) (*Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	j.raw = raw
	return &j, nil
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the job goes straight to the
// dead list.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

package event

import (
	"context"
	"fmt"

	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/queue"
)

// JobForwarder enqueues a background job carrying the event as payload
type JobForwarder struct {
	queue   queue.Queue
	jobType string
}

// NewJobForwarder creates a handler that turns each event into a jobType job
func NewJobForwarder(q queue.Queue, jobType string) *JobForwarder {
	return &JobForwarder{queue: q, jobType: jobType}
}

// Handle enqueues the job
func (f *JobForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	job, err := queue.NewJob(f.jobType, event.TenantID(), event)
	if err != nil {
		return err
	}
	if err := f.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("forward %s to %s: %w", event.EventType(), f.jobType, err)
	}
	return nil
}

// Route is one event type to job type binding
type Route struct {
	EventType string
	JobType   string
}

// ForwardToQueue subscribes a JobForwarder for each route
func ForwardToQueue(bus *InMemoryEventBus, q queue.Queue, routes ...Route) {
	for _, r := range routes {
		bus.Subscribe(NewJobForwarder(q, r.JobType), r.EventType)
	}
}

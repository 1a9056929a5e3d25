package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue for tests and single-instance setups.
// Jobs are lost on restart.
type MemoryQueue struct {
	opts Options

	mu       sync.Mutex
	ready    []*Job
	delayed  []*Job // sorted by RunAt
	dead     []*Job
	inflight map[*Job]struct{}
	notify   chan struct{}
}

// NewMemoryQueue creates an in-memory queue
func NewMemoryQueue(opts Options) *MemoryQueue {
	return &MemoryQueue{
		opts:     opts.withDefaults(),
		inflight: make(map[*Job]struct{}),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue adds a job
func (q *MemoryQueue) Enqueue(_ context.Context, job *Job) error {
	q.opts.prepare(job)
	q.mu.Lock()
	q.schedule(job)
	q.mu.Unlock()
	q.wake()
	return nil
}

// schedule places job in ready or delayed; callers hold mu
func (q *MemoryQueue) schedule(job *Job) {
	if job.RunAt.After(time.Now()) {
		i := sort.Search(len(q.delayed), func(i int) bool {
			return q.delayed[i].RunAt.After(job.RunAt)
		})
		q.delayed = append(q.delayed, nil)
		copy(q.delayed[i+1:], q.delayed[i:])
		q.delayed[i] = job
		return
	}
	q.ready = append(q.ready, job)
}

func (q *MemoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a job is due or ctx is done
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		q.promoteLocked(time.Now())
		if len(q.ready) > 0 {
			job := q.ready[0]
			q.ready = q.ready[1:]
			q.inflight[job] = struct{}{}
			q.mu.Unlock()
			return job, nil
		}
		wait := q.opts.PollInterval
		if len(q.delayed) > 0 {
			if until := time.Until(q.delayed[0].RunAt); until < wait {
				wait = until
			}
		}
		q.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (q *MemoryQueue) promoteLocked(now time.Time) {
	n := 0
	for n < len(q.delayed) && !q.delayed[n].RunAt.After(now) {
		n++
	}
	if n == 0 {
		return
	}
	q.ready = append(q.ready, q.delayed[:n]...)
	q.delayed = q.delayed[n:]
}

// Ack forgets a finished job
func (q *MemoryQueue) Ack(_ context.Context, job *Job) error {
	q.mu.Lock()
	delete(q.inflight, job)
	q.mu.Unlock()
	return nil
}

// Retry reschedules or buries a failed job
func (q *MemoryQueue) Retry(_ context.Context, job *Job, cause error) error {
	q.mu.Lock()
	delete(q.inflight, job)
	if q.opts.reschedule(job, cause) {
		q.dead = append(q.dead, job)
	} else {
		q.schedule(job)
	}
	q.mu.Unlock()
	q.wake()
	return nil
}

// Len returns ready plus delayed jobs
func (q *MemoryQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.ready) + len(q.delayed)), nil
}

// DeadLen returns the number of dead jobs
func (q *MemoryQueue) DeadLen(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.dead)), nil
}

// Dead returns a copy of the dead jobs
func (q *MemoryQueue) Dead() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Job(nil), q.dead...)
}

var _ Queue = (*MemoryQueue)(nil)

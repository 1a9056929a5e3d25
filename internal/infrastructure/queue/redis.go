package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// promoteScript moves up to ARGV[2] due members from the delayed set to the
// ready list in one step, so two promoters never move the same job.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(due) do
  redis.call('ZREM', KEYS[1], member)
  redis.call('LPUSH', KEYS[2], member)
end
return #due
`)

// claimScript pops the oldest ready job and leases it until ARGV[1]
var claimScript = redis.NewScript(`
local raw = redis.call('RPOP', KEYS[1])
if not raw then
  return false
end
redis.call('ZADD', KEYS[2], ARGV[1], raw)
return raw
`)

// reclaimScript returns up to ARGV[2] jobs whose lease ended by ARGV[1] to
// the head of the ready list. Live leases are left alone.
var reclaimScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(expired) do
  redis.call('ZREM', KEYS[1], member)
  redis.call('RPUSH', KEYS[2], member)
end
return #expired
`)

const promoteBatch = 100

// RedisQueue keeps jobs in Redis:
//
//	mall:queue:<name>:ready       list, LPUSH in / RPOP out
//	mall:queue:<name>:processing  sorted set of in-flight jobs scored by lease deadline (unix ms)
//	mall:queue:<name>:delayed     sorted set scored by run-at (unix ms)
//	mall:queue:<name>:dead        list of exhausted jobs
//
// A job whose worker dies stays leased until its deadline passes, then any
// replica's Dequeue puts it back on the ready list.
type RedisQueue struct {
	client *redis.Client
	opts   Options
	logger *zap.Logger

	readyKey      string
	processingKey string
	delayedKey    string
	deadKey       string
}

// NewRedisQueue creates a queue on client
func NewRedisQueue(client *redis.Client, opts Options, logger *zap.Logger) *RedisQueue {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := "mall:queue:" + opts.Name + ":"
	return &RedisQueue{
		client:        client,
		opts:          opts,
		logger:        logger,
		readyKey:      prefix + "ready",
		processingKey: prefix + "processing",
		delayedKey:    prefix + "delayed",
		deadKey:       prefix + "dead",
	}
}

// Enqueue adds a job to the ready list, or the delayed set if RunAt is ahead
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	q.opts.prepare(job)
	raw, err := job.encode()
	if err != nil {
		return err
	}
	if job.RunAt.After(time.Now()) {
		err = q.client.ZAdd(ctx, q.delayedKey, redis.Z{Score: score(job.RunAt), Member: raw}).Err()
	} else {
		err = q.client.LPush(ctx, q.readyKey, raw).Err()
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", job.Type, err)
	}
	return nil
}

// Dequeue promotes due jobs, reclaims expired leases and leases the oldest
// ready job, polling until one appears
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		if err := q.promote(ctx); err != nil && ctx.Err() == nil {
			q.logger.Warn("Failed to promote delayed jobs", zap.Error(err))
		}
		if _, err := q.RecoverExpired(ctx); err != nil && ctx.Err() == nil {
			q.logger.Warn("Failed to reclaim expired leases", zap.Error(err))
		}

		deadline := strconv.FormatInt(time.Now().Add(q.opts.Lease).UnixMilli(), 10)
		raw, err := claimScript.Run(ctx, q.client, []string{q.readyKey, q.processingKey}, deadline).Text()
		switch {
		case err == nil:
			job, decodeErr := decodeJob(raw)
			if decodeErr != nil {
				q.logger.Error("Dropping undecodable job", zap.Error(decodeErr))
				q.client.ZRem(ctx, q.processingKey, raw)
				q.client.LPush(ctx, q.deadKey, raw)
				continue
			}
			return job, nil
		case errors.Is(err, redis.Nil):
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			q.logger.Warn("Dequeue failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.opts.PollInterval):
		}
	}
}

// Ack releases the job's lease
func (q *RedisQueue) Ack(ctx context.Context, job *Job) error {
	if err := q.client.ZRem(ctx, q.processingKey, job.raw).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	return nil
}

// Retry moves the job from processing to delayed, or to dead
func (q *RedisQueue) Retry(ctx context.Context, job *Job, cause error) error {
	previous := job.raw
	dead := q.opts.reschedule(job, cause)
	raw, err := job.encode()
	if err != nil {
		return err
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.processingKey, previous)
		if dead {
			pipe.LPush(ctx, q.deadKey, raw)
		} else {
			pipe.ZAdd(ctx, q.delayedKey, redis.Z{Score: score(job.RunAt), Member: raw})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("retry job %s: %w", job.ID, err)
	}
	job.raw = raw
	return nil
}

// Len returns ready plus delayed jobs
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.readyKey)
	delayed := pipe.ZCard(ctx, q.delayedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return ready.Val() + delayed.Val(), nil
}

// DeadLen returns the dead list length
func (q *RedisQueue) DeadLen(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.deadKey).Result()
	if err != nil {
		return 0, fmt.Errorf("dead queue length: %w", err)
	}
	return n, nil
}

// RecoverExpired returns jobs whose lease ran out to the ready list. Jobs
// still leased by a live worker, on this replica or another, stay put.
func (q *RedisQueue) RecoverExpired(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	moved, err := reclaimScript.Run(ctx, q.client, []string{q.processingKey, q.readyKey}, now, promoteBatch).Int()
	if err != nil {
		return 0, fmt.Errorf("recover expired jobs: %w", err)
	}
	if moved > 0 {
		q.logger.Warn("Recovered jobs with expired leases", zap.Int("count", moved))
	}
	return moved, nil
}

func (q *RedisQueue) promote(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return promoteScript.Run(ctx, q.client, []string{q.delayedKey, q.readyKey}, now, promoteBatch).Err()
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

var _ Queue = (*RedisQueue)(nil)

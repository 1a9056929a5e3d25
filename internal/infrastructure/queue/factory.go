package queue

import (
	"time"

	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaseMargin = time.Minute

// OptionsFromConfig maps queue settings onto Options
func OptionsFromConfig(cfg config.QueueConfig) Options {
	return Options{
		Name:         cfg.Name,
		MaxAttempts:  cfg.MaxAttempts,
		Backoff:      Backoff{Base: cfg.BaseDelay, Max: cfg.MaxDelay, Jitter: DefaultJitter},
		PollInterval: cfg.PollInterval,
		Lease:        leaseFor(cfg.JobTimeout),
	}.withDefaults()
}

// leaseFor outlasts a job that runs into its timeout and then acks
func leaseFor(jobTimeout time.Duration) time.Duration {
	if jobTimeout <= 0 {
		return 0
	}
	return jobTimeout + leaseMargin
}

// New returns a Redis queue when the backend is redis and a client is
// available, otherwise an in-memory queue
func New(cfg config.QueueConfig, client *redis.Client, logger *zap.Logger) Queue {
	opts := OptionsFromConfig(cfg)
	if cfg.Backend == "redis" && client != nil {
		return NewRedisQueue(client, opts, logger)
	}
	if logger != nil && cfg.Backend == "redis" {
		logger.Warn("Redis unavailable, background jobs use the in-memory queue")
	}
	return NewMemoryQueue(opts)
}

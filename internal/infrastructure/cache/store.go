package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// Store is a TTL key/value cache of raw bytes
type Store interface {
	// Get returns the value and whether it was found
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore implements Store on Redis strings
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a store whose keys are namespaced by keyPrefix
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// Get reads key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes key with ttl
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.keyPrefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *cacheEntry) isExpired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// InMemoryStore implements Store in process memory. Entries are dropped
// lazily on read and by a background sweeper.
type InMemoryStore struct {
	entries sync.Map // map[string]*cacheEntry
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// InMemoryOption is a functional option for configuring the store
type InMemoryOption func(*InMemoryStore)

// WithInMemoryLogger sets the logger for the store
func WithInMemoryLogger(logger *zap.Logger) InMemoryOption {
	return func(s *InMemoryStore) {
		s.logger = logger
	}
}

// NewInMemoryStore creates a store and starts its sweeper; call Close to stop it
func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupExpired()
	return s
}

// Get reads key
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.entries.Load(key)
	if !ok {
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}
	entry := v.(*cacheEntry)
	if entry.isExpired() {
		s.entries.Delete(key)
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}
	atomic.AddInt64(&s.hits, 1)
	return entry.value, true, nil
}

// Set writes key; a zero ttl never expires
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries.Store(key, entry)
	return nil
}

// Delete removes keys
func (s *InMemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.entries.Delete(k)
	}
	return nil
}

// GetStats returns hit and miss counters
func (s *InMemoryStore) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&s.hits), atomic.LoadInt64(&s.misses)
}

// Close stops the sweeper
func (s *InMemoryStore) Close() error {
	if atomic.CompareAndSwapInt32(&s.stopped, 0, 1) {
		close(s.stopCh)
	}
	return nil
}

func (s *InMemoryStore) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.doCleanup()
		}
	}
}

func (s *InMemoryStore) doCleanup() {
	removed := 0
	s.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired() {
			s.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		s.logger.Debug("Cleaned up expired cache entries", zap.Int("removed", removed))
	}
}

var _ Store = (*InMemoryStore)(nil)

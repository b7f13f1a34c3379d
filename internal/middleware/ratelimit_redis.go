package middleware

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces rate limit counters in a shared Redis.
const redisKeyPrefix = "ratelimit:"

// RedisRateLimitStore implements RateLimitStore with a fixed window counter
// in Redis, so limits hold across API replicas. It fails open: when Redis is
// unreachable the request is allowed and the error is counted.
type RedisRateLimitStore struct {
	client  redis.Cmdable
	metrics *Metrics
	logger  *slog.Logger
}

// RedisStoreOption configures a RedisRateLimitStore.
type RedisStoreOption func(*RedisRateLimitStore)

// WithRedisMetrics counts Redis failures in m.
func WithRedisMetrics(m *Metrics) RedisStoreOption {
	return func(s *RedisRateLimitStore) { s.metrics = m }
}

// WithRedisLogger sets the logger used for fail-open warnings.
func WithRedisLogger(logger *slog.Logger) RedisStoreOption {
	return func(s *RedisRateLimitStore) { s.logger = logger }
}

// NewRedisRateLimitStore creates a store backed by client.
func NewRedisRateLimitStore(client redis.Cmdable, opts ...RedisStoreOption) *RedisRateLimitStore {
	s := &RedisRateLimitStore{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow implements RateLimitStore.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	redisKey := redisKeyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return s.failOpen(ctx, key, config, err)
	}

	count := int(incr.Val())
	remainingWindow := ttl.Val()

	// A counter without expiry was just created (or lost its TTL); start the window.
	if remainingWindow <= 0 {
		if err := s.client.PExpire(ctx, redisKey, config.WindowDuration).Err(); err != nil {
			return s.failOpen(ctx, key, config, err)
		}
		remainingWindow = config.WindowDuration
	}

	if count > config.RequestsPerWindow {
		return false, 0, retryAfterSeconds(remainingWindow)
	}
	return true, config.RequestsPerWindow - count, 0
}

func (s *RedisRateLimitStore) failOpen(ctx context.Context, key string, config RateLimitConfig, err error) (bool, int, int) {
	s.metrics.IncRateLimitRedisErrors()
	s.logger.WarnContext(ctx, "rate limit store unavailable, allowing request",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
	return true, config.RequestsPerWindow, 0
}

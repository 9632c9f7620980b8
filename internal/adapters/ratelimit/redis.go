package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/growthspect/contact-intake/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is a Redis implementation of the RateLimitStore interface.
// It is the swappable distributed option for horizontally scaled
// deployments where every replica must see the same counters.
type RedisStore struct {
	rdb         *redis.Client
	logger      *zap.Logger
	prefix      string
	window      time.Duration
	maxRequests int
}

// NewRedisStore creates a new Redis rate limit store
func NewRedisStore(rdb *redis.Client, logger *zap.Logger, prefix string, window time.Duration, maxRequests int) (*RedisStore, error) {
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{
		rdb:         rdb,
		logger:      logger,
		prefix:      prefix,
		window:      window,
		maxRequests: maxRequests,
	}, nil
}

// Check records one request and decides whether it is allowed.
//
// INCR plus a set-only-once expiry gives the same fixed-window shape as
// the in-process stores: the first request of a window starts the clock,
// later ones only bump the counter. Redis evicts expired keys itself, so
// there is no janitor here.
func (s *RedisStore) Check(ctx context.Context, clientID string) (*core.Decision, error) {
	key := s.prefix + ":" + clientID

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to update rate limit counter: %w", err)
	}

	count := int(incr.Val())
	if count > s.maxRequests {
		retryAfter := s.window
		if pttl, err := s.rdb.PTTL(ctx, key).Result(); err == nil && pttl > 0 {
			retryAfter = pttl
		} else if err != nil {
			s.logger.Warn("Failed to read rate limit TTL", zap.Error(err), zap.String("key", key))
		}
		return &core.Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	return &core.Decision{Allowed: true, Remaining: s.maxRequests - count}, nil
}

package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/growthspect/contact-intake/internal/adapters/ratelimit"
	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitFactory creates rate limit stores based on configuration
type RateLimitFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRateLimitFactory creates a new rate limit factory
func NewRateLimitFactory(cfg *config.Config, logger *zap.Logger) *RateLimitFactory {
	return &RateLimitFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a rate limit store based on the configuration
func (f *RateLimitFactory) CreateStore() (core.RateLimitStore, error) {
	rlCfg, err := f.cfg.GetRateLimit()
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	switch rlCfg.Store {
	case "memory":
		return ratelimit.NewMemoryStore(f.logger, rlCfg.Window, rlCfg.MaxRequests, rlCfg.CleanupFrequency), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(rlCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return ratelimit.NewSQLiteStore(rlCfg.SQLitePath, f.logger, rlCfg.Window, rlCfg.MaxRequests, rlCfg.CleanupFrequency)
	case "mysql":
		return ratelimit.NewMySQLStore(rlCfg.MySQLDSN, f.logger, rlCfg.Window, rlCfg.MaxRequests, rlCfg.CleanupFrequency)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     rlCfg.RedisAddr,
			Password: rlCfg.RedisPassword,
			DB:       rlCfg.RedisDB,
		})
		return ratelimit.NewRedisStore(rdb, f.logger, rlCfg.RedisPrefix, rlCfg.Window, rlCfg.MaxRequests)
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", rlCfg.Store)
	}
}

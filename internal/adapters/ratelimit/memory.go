package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/growthspect/contact-intake/internal/core"
	"go.uber.org/zap"
)

// entry is one client's fixed-window counter
type entry struct {
	count         int
	windowResetAt time.Time
}

// MemoryStore is an in-memory implementation of the RateLimitStore
// interface. It counts requests per client inside a fixed window and
// evicts expired entries with a background janitor.
type MemoryStore struct {
	entries     map[string]*entry
	mu          sync.Mutex
	logger      *zap.Logger
	window      time.Duration
	maxRequests int
	cleanupFreq time.Duration
	stopCh      chan struct{}
	now         func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the store's time source, mainly for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a new in-memory rate limit store
func NewMemoryStore(logger *zap.Logger, window time.Duration, maxRequests int, cleanupFreq time.Duration, opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		entries:     make(map[string]*entry),
		logger:      logger,
		window:      window,
		maxRequests: maxRequests,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	// Start background cleanup
	go store.startCleanupTask()

	return store
}

// Check records one request and decides whether it is allowed.
//
// Fixed-window semantics: an expired window is replaced, never read, and
// an over-limit count stays recorded rather than being rolled back. The
// whole read-modify-write runs under the store mutex so concurrent
// requests from one client cannot interleave.
func (s *MemoryStore) Check(ctx context.Context, clientID string) (*core.Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[clientID]
	if !ok || !now.Before(e.windowResetAt) {
		s.entries[clientID] = &entry{count: 1, windowResetAt: now.Add(s.window)}
		return &core.Decision{Allowed: true, Remaining: s.maxRequests - 1}, nil
	}

	e.count++
	if e.count > s.maxRequests {
		return &core.Decision{Allowed: false, RetryAfter: e.windowResetAt.Sub(now)}, nil
	}
	return &core.Decision{Allowed: true, Remaining: s.maxRequests - e.count}, nil
}

// Cleanup removes entries whose window has ended
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expiredCount := 0
	for key, e := range s.entries {
		if !now.Before(e.windowResetAt) {
			delete(s.entries, key)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired rate limit entries", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (s *MemoryStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up rate limit store", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}

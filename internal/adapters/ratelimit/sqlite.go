package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/growthspect/contact-intake/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the RateLimitStore interface.
// It survives process restarts, which the in-memory store does not.
type SQLiteStore struct {
	db          *sql.DB
	logger      *zap.Logger
	window      time.Duration
	maxRequests int
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteStore creates a new SQLite rate limit store
func NewSQLiteStore(dbPath string, logger *zap.Logger, window time.Duration, maxRequests int, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Serialize writers; sqlite only supports one anyway.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rate_limits (
			client_id TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			window_reset_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_window_reset_at ON rate_limits(window_reset_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	store := &SQLiteStore{
		db:          db,
		logger:      logger,
		window:      window,
		maxRequests: maxRequests,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go store.startCleanupTask()

	return store, nil
}

// Check records one request and decides whether it is allowed
func (s *SQLiteStore) Check(ctx context.Context, clientID string) (*core.Decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	var count int
	var resetAt string
	err = tx.QueryRowContext(ctx, `
		SELECT count, window_reset_at FROM rate_limits WHERE client_id = ?
	`, clientID).Scan(&count, &resetAt)

	fresh := false
	var windowResetAt time.Time
	switch {
	case err == sql.ErrNoRows:
		fresh = true
	case err != nil:
		return nil, fmt.Errorf("failed to query rate limit entry: %w", err)
	default:
		windowResetAt, err = time.Parse(time.RFC3339Nano, resetAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse window_reset_at: %w", err)
		}
		if !now.Before(windowResetAt) {
			fresh = true
		}
	}

	if fresh {
		windowResetAt = now.Add(s.window)
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO rate_limits (client_id, count, window_reset_at)
			VALUES (?, 1, ?)
		`, clientID, windowResetAt.Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("failed to start rate limit window: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return &core.Decision{Allowed: true, Remaining: s.maxRequests - 1}, nil
	}

	count++
	_, err = tx.ExecContext(ctx, `
		UPDATE rate_limits SET count = ? WHERE client_id = ?
	`, count, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment rate limit entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	if count > s.maxRequests {
		return &core.Decision{Allowed: false, RetryAfter: windowResetAt.Sub(now)}, nil
	}
	return &core.Decision{Allowed: true, Remaining: s.maxRequests - count}, nil
}

// Cleanup removes entries whose window has ended
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM rate_limits WHERE window_reset_at <= ?
	`, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired rate limit entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (s *SQLiteStore) startCleanupTask() {
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

// Stop stops the background cleanup task and closes the database
func (s *SQLiteStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}

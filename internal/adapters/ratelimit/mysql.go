package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/growthspect/contact-intake/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the RateLimitStore interface,
// for deployments that already run a shared database.
type MySQLStore struct {
	db          *sql.DB
	logger      *zap.Logger
	window      time.Duration
	maxRequests int
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLStore creates a new MySQL rate limit store
func NewMySQLStore(dsn string, logger *zap.Logger, window time.Duration, maxRequests int, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rate_limits (
			client_id VARCHAR(255) PRIMARY KEY,
			count INT NOT NULL,
			window_reset_at TIMESTAMP(3) NOT NULL,
			INDEX idx_window_reset_at (window_reset_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLStore{
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
func (s *MySQLStore) Check(ctx context.Context, clientID string) (*core.Decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	var count int
	var windowResetAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT count, window_reset_at FROM rate_limits WHERE client_id = ? FOR UPDATE
	`, clientID).Scan(&count, &windowResetAt)

	fresh := false
	switch {
	case err == sql.ErrNoRows:
		fresh = true
	case err != nil:
		return nil, fmt.Errorf("failed to query rate limit entry: %w", err)
	default:
		if !now.Before(windowResetAt) {
			fresh = true
		}
	}

	if fresh {
		windowResetAt = now.Add(s.window)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rate_limits (client_id, count, window_reset_at)
			VALUES (?, 1, ?)
			ON DUPLICATE KEY UPDATE count = 1, window_reset_at = VALUES(window_reset_at)
		`, clientID, windowResetAt)
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
func (s *MySQLStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM rate_limits WHERE window_reset_at <= NOW(3)
	`)
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
func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}

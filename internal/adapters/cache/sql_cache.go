package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
)

// summaryRow mirrors the summary_cache table. Timestamps are unix seconds so
// both drivers compare them the same way.
type summaryRow struct {
	Key       string `db:"cache_key"`
	Summary   string `db:"summary"`
	Model     string `db:"model"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
}

func (r summaryRow) entry() *core.CacheEntry {
	return &core.CacheEntry{
		Key:       r.Key,
		Summary:   r.Summary,
		Model:     r.Model,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		ExpiresAt: time.Unix(r.ExpiresAt, 0).UTC(),
	}
}

// sqlCache holds the queries shared by the SQLite and MySQL caches
type sqlCache struct {
	db       *sqlx.DB
	upsert   string
	driver   string
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func newSQLCache(db *sqlx.DB, driver, upsert string, logger *zap.Logger, cleanupFreq time.Duration) *sqlCache {
	c := &sqlCache{
		db:     db,
		upsert: upsert,
		driver: driver,
		logger: logger,
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
	if cleanupFreq > 0 {
		go runCleanup(c, cleanupFreq, c.stopCh, logger)
	}
	return c
}

// Get retrieves a live entry
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var row summaryRow
	err := c.db.GetContext(ctx, &row, `
		SELECT cache_key, summary, model, created_at, expires_at
		FROM summary_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, c.now().Unix())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	return row.entry(), nil
}

// Set stores an entry
func (c *sqlCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	row := summaryRow{
		Key:       entry.Key,
		Summary:   entry.Summary,
		Model:     entry.Model,
		CreatedAt: entry.CreatedAt.Unix(),
		ExpiresAt: entry.ExpiresAt.Unix(),
	}
	if _, err := c.db.NamedExecContext(ctx, c.upsert, row); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM summary_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM summary_cache WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries",
			zap.String("driver", c.driver),
			zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the cleanup task and closes the database
func (c *sqlCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close cache database", zap.String("driver", c.driver), zap.Error(err))
		}
	})
}

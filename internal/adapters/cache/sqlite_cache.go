package cache

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite-backed summary cache
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache opens dbPath and creates the summary_cache table if needed
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS summary_cache (
			cache_key TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summary_expires_at ON summary_cache(expires_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialise SQLite cache: %w", err)
		}
	}

	upsert := `INSERT OR REPLACE INTO summary_cache (cache_key, summary, model, created_at, expires_at)
		VALUES (:cache_key, :summary, :model, :created_at, :expires_at)`

	return &SQLiteCache{newSQLCache(db, "sqlite3", upsert, logger, cleanupFreq)}, nil
}

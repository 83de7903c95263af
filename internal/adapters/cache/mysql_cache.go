package cache

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL-backed summary cache
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache connects to dsn and creates the summary_cache table if needed
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS summary_cache (
			cache_key CHAR(64) PRIMARY KEY,
			summary MEDIUMTEXT NOT NULL,
			model VARCHAR(255) NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_summary_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	upsert := `INSERT INTO summary_cache (cache_key, summary, model, created_at, expires_at)
		VALUES (:cache_key, :summary, :model, :created_at, :expires_at)
		ON DUPLICATE KEY UPDATE summary = VALUES(summary), model = VALUES(model),
			created_at = VALUES(created_at), expires_at = VALUES(expires_at)`

	return &MySQLCache{newSQLCache(db, "mysql", upsert, logger, cleanupFreq)}, nil
}

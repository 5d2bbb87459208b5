package db

import (
	"context"
	"database/sql"
	"fmt"

	"excel-insights-api/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

func NewConnection(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.Database.ConnectionLifetime)
	if cfg.Database.Driver == "sqlite3" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := EnsureSchema(context.Background(), db, cfg.Database.Driver); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

var schemas = map[string][]string{
	"mysql": {
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			owner_id VARCHAR(36) NOT NULL,
			stored_name VARCHAR(512) NOT NULL,
			original_name VARCHAR(512) NOT NULL,
			size_bytes BIGINT NOT NULL,
			data LONGTEXT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_files_owner_created (owner_id, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS system_settings (
			id TINYINT PRIMARY KEY,
			max_file_size_mb DOUBLE NOT NULL,
			allowed_file_types TEXT NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
	},
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL DEFAULT 'user',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			stored_name TEXT NOT NULL,
			original_name TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_owner_created ON files (owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS system_settings (
			id INTEGER PRIMARY KEY,
			max_file_size_mb REAL NOT NULL,
			allowed_file_types TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	},
}

// EnsureSchema creates the tables used by the repositories if they do not
// exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	statements, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", driver)
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

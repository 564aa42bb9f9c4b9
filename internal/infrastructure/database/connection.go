package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/gapmap/internal/infrastructure/config"
)

// NewConnection opens the configured database and verifies it responds.
func NewConnection(cfg *config.Config) (*sql.DB, func(), error) {
	driver, err := cfg.DatabaseDriver()
	if err != nil {
		return nil, nil, fmt.Errorf("determine database driver: %w", err)
	}
	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return nil, nil, fmt.Errorf("determine database dsn: %w", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite3" {
		// SQLite serializes writers; a single connection avoids
		// SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	cleanup := func() { _ = db.Close() }
	return db, cleanup, nil
}

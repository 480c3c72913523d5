package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is an ordered list of statement groups; the version is the 1-based index.
var migrations = [][]string{
	// Migration 1: listing tables
	{
		`CREATE TABLE sales (
			id TEXT PRIMARY KEY,
			address TEXT NOT NULL,
			neighborhood TEXT,
			zip_code TEXT,
			price REAL,
			price_per_sqft REAL,
			bedrooms INTEGER,
			bathrooms REAL,
			sqft INTEGER,
			grade TEXT,
			score REAL,
			discount_percent REAL,
			status TEXT NOT NULL DEFAULT 'active',
			images TEXT NOT NULL DEFAULT '[]',
			videos TEXT NOT NULL DEFAULT '[]',
			floorplans TEXT NOT NULL DEFAULT '[]',
			agents TEXT NOT NULL DEFAULT '[]',
			amenities TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE rentals (
			id TEXT PRIMARY KEY,
			address TEXT NOT NULL,
			neighborhood TEXT,
			zip_code TEXT,
			rent REAL,
			rent_per_sqft REAL,
			bedrooms INTEGER,
			bathrooms REAL,
			sqft INTEGER,
			grade TEXT,
			score REAL,
			discount_percent REAL,
			status TEXT NOT NULL DEFAULT 'active',
			images TEXT NOT NULL DEFAULT '[]',
			videos TEXT NOT NULL DEFAULT '[]',
			floorplans TEXT NOT NULL DEFAULT '[]',
			agents TEXT NOT NULL DEFAULT '[]',
			amenities TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX idx_sales_status_score ON sales(status, score DESC)`,
		`CREATE INDEX idx_rentals_status_score ON rentals(status, score DESC)`,
	},
}

// Migrate runs all pending schema migrations, each inside its own transaction.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmts := range migrations {
		version := i + 1

		var exists int
		if err := conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}

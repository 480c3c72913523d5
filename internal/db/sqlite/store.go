// Package sqlite serves listings from an embedded SQLite database for local
// development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/db/sqlbuild"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds the database location and bootstrap switches.
type Config struct {
	Path string // file path or ":memory:"
	Seed bool   // insert demo listings after migrating
}

// Store implements db.Store over database/sql with the modernc driver.
type Store struct {
	db *sql.DB
}

// Open opens the database, applies migrations and optionally seeds demo data.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite to avoid locking issues.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if cfg.Seed {
		if err := Seed(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("seed listings: %w", err)
		}
	}

	return &Store{db: conn}, nil
}

// DB exposes the underlying handle for fixtures.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, s, timeout)
}

// Select renders q with ? placeholders and scans the rows.
func (s *Store) Select(ctx context.Context, q *query.Query) ([]db.ListingRow, error) {
	stmt, args, err := sqlbuild.Render(q, sqlbuild.SQLite)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	out := make([]db.ListingRow, 0)
	for rows.Next() {
		r, err := db.ScanRow(columns, rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

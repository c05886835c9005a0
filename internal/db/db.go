package db

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a Postgres connection pool
type DB struct {
	pool *pgxpool.Pool
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// validTable guards table names that end up interpolated into SQL
func validTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// New creates a new database connection pool
func New(ctx context.Context, dbURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.pool.Close()
}

// Pool returns the underlying connection pool for custom queries
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

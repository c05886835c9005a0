package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"slds/internal/dataset"

	"github.com/jackc/pgx/v5"
)

// PostgresDatasetStore keeps a league dataset in Postgres: one row per
// dataset row, cells as a JSONB array aligned with the column list held in
// dataset_columns
type PostgresDatasetStore struct {
	db    *DB
	table string
}

// NewPostgresDatasetStore creates the tables if they don't exist
func NewPostgresDatasetStore(ctx context.Context, db *DB, table string) (*PostgresDatasetStore, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	s := &PostgresDatasetStore{db: db, table: table}

	ident := pgx.Identifier{table}.Sanitize()
	queries := []string{
		`CREATE TABLE IF NOT EXISTS dataset_columns (
			table_name TEXT PRIMARY KEY,
			columns JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			row_index INTEGER PRIMARY KEY,
			cells JSONB NOT NULL
		)`, ident),
	}
	for _, q := range queries {
		if _, err := db.pool.Exec(ctx, q); err != nil {
			return nil, fmt.Errorf("failed to create dataset tables: %w", err)
		}
	}
	return s, nil
}

// Load reads the dataset, dataset.ErrNotFound when it was never saved
func (s *PostgresDatasetStore) Load(ctx context.Context) (*dataset.Table, error) {
	var columns []string
	err := s.db.pool.QueryRow(ctx,
		`SELECT columns FROM dataset_columns WHERE table_name = $1`, s.table).Scan(&columns)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %s", dataset.ErrNotFound, s.table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", s.table, err)
	}

	rows, err := s.db.pool.Query(ctx,
		fmt.Sprintf(`SELECT cells FROM %s ORDER BY row_index`, pgx.Identifier{s.table}.Sanitize()))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer rows.Close()

	t := dataset.NewTable(columns...)
	for rows.Next() {
		var cells []string
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		row := make([]string, len(columns))
		copy(row, cells)
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// Save replaces the stored dataset in one transaction
func (s *PostgresDatasetStore) Save(ctx context.Context, t *dataset.Table) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ident := pgx.Identifier{s.table}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, ident.Sanitize())); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.table, err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO dataset_columns (table_name, columns, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (table_name) DO UPDATE SET columns = EXCLUDED.columns, updated_at = now()
	`, s.table, t.Columns); err != nil {
		return fmt.Errorf("failed to store columns of %s: %w", s.table, err)
	}

	src := make([][]any, 0, t.Len())
	for i := range t.Rows {
		cells := make([]string, len(t.Columns))
		for c, name := range t.Columns {
			cells[c] = t.Value(i, name)
		}
		src = append(src, []any{i, cells})
	}
	n, err := tx.CopyFrom(ctx, ident, []string{"row_index", "cells"}, pgx.CopyFromRows(src))
	if err != nil {
		return fmt.Errorf("failed to copy rows into %s: %w", s.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("[DB] Wrote %d rows to %s", n, s.table)
	return nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"slds/internal/dataset"

	json "github.com/goccy/go-json"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// SQLDatasetStore keeps a league dataset in SQLite or Turso (libSQL)
type SQLDatasetStore struct {
	db    *sql.DB
	table string
}

// OpenSQL opens a local SQLite file ("sqlite:path", "file:path" or a .db
// path) or a remote Turso database ("libsql://", "https://", "wss://").
// authToken is only used for Turso.
func OpenSQL(dsn, authToken string) (*sql.DB, error) {
	driver, connStr := "sqlite", dsn
	switch {
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "https://"), strings.HasPrefix(dsn, "wss://"):
		driver = "libsql"
		if authToken != "" {
			connStr = fmt.Sprintf("%s?authToken=%s", dsn, authToken)
		}
	case strings.HasPrefix(dsn, "sqlite://"):
		connStr = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		connStr = strings.TrimPrefix(dsn, "sqlite:")
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return db, nil
}

// NewSQLDatasetStore creates the tables if they don't exist
func NewSQLDatasetStore(ctx context.Context, db *sql.DB, table string) (*SQLDatasetStore, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS dataset_columns (
			table_name TEXT PRIMARY KEY,
			columns TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			row_index INTEGER PRIMARY KEY,
			cells TEXT NOT NULL
		)`, table),
	}
	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return nil, fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return &SQLDatasetStore{db: db, table: table}, nil
}

// Load reads the dataset, dataset.ErrNotFound when it was never saved
func (s *SQLDatasetStore) Load(ctx context.Context) (*dataset.Table, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM dataset_columns WHERE table_name = ?`, s.table).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %s", dataset.ErrNotFound, s.table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", s.table, err)
	}
	var columns []string
	if err := json.Unmarshal([]byte(raw), &columns); err != nil {
		return nil, fmt.Errorf("corrupt column list for %s: %w", s.table, err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT cells FROM %s ORDER BY row_index`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer rows.Close()

	t := dataset.NewTable(columns...)
	for rows.Next() {
		var cellsRaw string
		if err := rows.Scan(&cellsRaw); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(cellsRaw), &cells); err != nil {
			return nil, fmt.Errorf("corrupt row in %s: %w", s.table, err)
		}
		row := make([]string, len(columns))
		copy(row, cells)
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// Save replaces the stored dataset in one transaction
func (s *SQLDatasetStore) Save(ctx context.Context, t *dataset.Table) error {
	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.table, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO dataset_columns (table_name, columns, updated_at) VALUES (?, ?, ?)`,
		s.table, string(columns), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to store columns of %s: %w", s.table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (row_index, cells) VALUES (?, ?)`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	cells := make([]string, len(t.Columns))
	for i := range t.Rows {
		for c, name := range t.Columns {
			cells[c] = t.Value(i, name)
		}
		raw, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, i, string(raw)); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, s.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[DB] Wrote %d rows to %s", t.Len(), s.table)
	return nil
}

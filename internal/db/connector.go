package db

import (
	"context"
	"fmt"
	"os"
	"strings"

	"slds/internal/config"
	"slds/internal/dataset"
	"slds/internal/storage"
)

// Connector holds the database-backed stores of one run
type Connector struct {
	Records  storage.RecordStore
	Datasets dataset.Store
	closers  []func()
}

// Open wires the database connector for a league. The dataset goes to
// Postgres for postgres:// URLs and to SQLite/Turso otherwise; raw records
// go to MongoDB when a URI is configured and stay on disk when not.
func Open(ctx context.Context, cfg *config.Config, league *config.League) (*Connector, error) {
	c := &Connector{}

	switch {
	case cfg.DatabaseURL == "":
		return nil, fmt.Errorf("database connector needs database_url")
	case strings.HasPrefix(cfg.DatabaseURL, "postgres://"), strings.HasPrefix(cfg.DatabaseURL, "postgresql://"):
		pg, err := New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pg.Close)
		store, err := NewPostgresDatasetStore(ctx, pg, league.Table)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Datasets = store
	default:
		sqlDB, err := OpenSQL(cfg.DatabaseURL, os.Getenv("TURSO_AUTH_TOKEN"))
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { sqlDB.Close() })
		store, err := NewSQLDatasetStore(ctx, sqlDB, league.Table)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Datasets = store
	}

	if cfg.MongoURI == "" {
		loc, err := league.DateLocation()
		if err != nil {
			c.Close()
			return nil, err
		}
		fs, err := storage.NewFileStore(league.GamesDir, league.Official, storage.WithLocation(loc))
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Records = fs
		return c, nil
	}
	client, err := ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		c.Close()
		return nil, err
	}
	records := NewMongoRecordStore(client, cfg.MongoDatabase, league.Key, league.Official)
	c.closers = append(c.closers, func() { records.Close(context.Background()) })
	c.Records = records
	return c, nil
}

// Close releases every connection in reverse order
func (c *Connector) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

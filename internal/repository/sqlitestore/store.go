// Package sqlitestore is an embedded SQLite implementation of the article
// and link repositories, used by the harvester CLI for local runs.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/helixir/pubmed-harvester/internal/database"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB is an open SQLite store.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open migrates the database file at path to the latest schema and opens it.
func Open(path string, logger zerolog.Logger) (*DB, error) {
	logger = logger.With().Str("component", "sqlite_store").Str("path", path).Logger()

	migrator, err := database.NewSQLiteMigrator(path, logger)
	if err != nil {
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		migrator.Close()
		return nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	return &DB{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Articles returns the article repository backed by this store.
func (d *DB) Articles() *ArticleRepository {
	return &ArticleRepository{db: d.db}
}

// Links returns the link repository backed by this store.
func (d *DB) Links() *LinkRepository {
	return &LinkRepository{db: d.db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// isConstraint reports whether err is a SQLite unique or primary key violation.
func isConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

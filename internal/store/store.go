package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/arbordata/arbor/internal/mapping"
)

// Dialect selects placeholder style and generated-id retrieval.
type Dialect int

const (
	// SQLite uses ? placeholders and LastInsertId.
	SQLite Dialect = iota
	// Postgres uses $n placeholders and RETURNING.
	Postgres
)

// Store executes actions for one schema against one database handle.
type Store struct {
	db      *sql.DB
	schema  *mapping.Schema
	dialect Dialect
	idMode  IDMode
}

// Option configures a Store.
type Option func(*Store)

// WithProvidedIDs makes CreateTables declare identifier columns TEXT PRIMARY
// KEY, for callers that pre-assign every identifier instead of relying on
// rowid generation.
func WithProvidedIDs() Option {
	return func(s *Store) { s.idMode = ProvidedIDs }
}

// Open creates or opens a SQLite database at the given path and configures
// it for single-writer use:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
func Open(path string, schema *mapping.Schema, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// SQLite supports one writer at a time; a second connection would only
	// produce SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db, schema: schema, dialect: SQLite}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenPostgres opens a Postgres-backed store using the given DSN. DDL is the
// caller's responsibility; CreateTables targets SQLite only.
func OpenPostgres(dsn string, schema *mapping.Schema) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{db: db, schema: schema, dialect: Postgres}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for integration tests and caller-managed
// transactions.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// CreateTables derives DDL from the mapping and applies it. SQLite only:
// identifier columns follow the store's IDMode, every non-embedded relation
// contributes its foreign-key and qualifier columns to the target table, and
// single references get a UNIQUE foreign key so merges can upsert.
func (s *Store) CreateTables(ctx context.Context) error {
	if s.dialect != SQLite {
		return fmt.Errorf("CreateTables supports the SQLite dialect only")
	}
	for _, stmt := range GenerateDDL(s.schema, s.idMode) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

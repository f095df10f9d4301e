package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/roach88/integrator/internal/artifact"
	"github.com/roach88/integrator/internal/audit"
	"github.com/roach88/integrator/internal/issue"
	"github.com/roach88/integrator/internal/model"
	"github.com/roach88/integrator/internal/schemaver"
)

//go:embed schema.sql
var schemaSQL string

// Layout version tracked in PRAGMA user_version:
// 1 - Initial layout (cached artifacts, event log, issue groups, system properties)
const layoutVersion = 1

var (
	_ artifact.DocumentBackend  = (*Store)(nil)
	_ artifact.ImageBackend     = (*Store)(nil)
	_ artifact.LabResultBackend = (*Store)(nil)
	_ audit.Backend             = (*Store)(nil)
	_ issue.GroupBackend        = (*Store)(nil)
	_ schemaver.Backend         = (*Store)(nil)
)

// Store is the SQLite persistence collaborator for the integrator.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// makes AUTOINCREMENT id assignment atomic across concurrent appends.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Exec executes a statement. Writes rejected by the append-only and
// singleton triggers come back as model.ImmutabilityError.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isTriggerAbort(err) {
			return nil, immutabilityFromTrigger(err)
		}
		return nil, err
	}
	return res, nil
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables, indexes and triggers if they don't exist and
// stamps the layout version. It refuses databases written by a newer build.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > layoutVersion {
		return fmt.Errorf("database layout version %d is newer than supported version %d", version, layoutVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", layoutVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// isTriggerAbort reports whether err came from one of the schema's
// RAISE(ABORT, '... is not allowed ...') triggers.
func isTriggerAbort(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	constraint := se.Code == sqlite3.ErrConstraint || se.ExtendedCode == sqlite3.ErrConstraintTrigger
	return constraint && strings.Contains(se.Error(), "is not allowed")
}

func immutabilityFromTrigger(err error) error {
	msg := err.Error()
	ie := &model.ImmutabilityError{Kind: "record", Op: "write"}
	switch {
	case strings.Contains(msg, "update is not allowed"):
		ie.Op = "update"
	case strings.Contains(msg, "remove is not allowed"):
		ie.Op = "remove"
	}
	switch {
	case strings.Contains(msg, audit.Kind):
		ie.Kind = audit.Kind
	case strings.Contains(msg, schemaver.Kind):
		ie.Kind = schemaver.Kind
	}
	return ie
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

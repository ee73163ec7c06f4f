/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of the engine with one database:
  organization.Repository / Reader, reporting.Repository / Reader and
  auth.Repository.

KEY TABLES:
  organizations:              Tenants (client-assigned ids)
  therapists:                 Roster rows, one per (therapist id, organization)
  interactions:               Daily numbered interaction counts per therapist
  total_therapists, rates:    Periodic reporting rows
  all_time_total_therapists,
  all_time_rates:             Reporting rows over arbitrary ranges
  users, auth_tokens:         API accounts and token digests

UNIQUENESS:
  Reporting rows are unique per scope. SQLite treats NULLs as distinct in
  UNIQUE constraints, so every scoped table has two partial unique indexes:
  one for organization rows and one for global (NULL organization) rows.

TRANSACTIONS:
  WithTx runs a function against a *Tx bound to one database transaction.
  Organizations() and Reporting() adapt it to the TxRunner interface of each
  domain package.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety: writers are serialized, readers run
  together. The pool holds one connection so ":memory:" is one database.

USAGE:
  store, err := sqlite.New("./data/reporting.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  orgs := organization.NewService(store.Organizations(), logger)

SEE ALSO:
  - bulk.go: multi-row INSERT and CASE-keyed UPDATE
  - generic/store.go: Scope and Page
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/organization"
	"github.com/holistic/reporting-engine/reporting"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS organizations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	);

	-- Therapist rows: one per organization, plus at most one unscoped placeholder
	CREATE TABLE IF NOT EXISTS therapists (
		row_id INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		organization_id INTEGER REFERENCES organizations(id) ON DELETE CASCADE,
		date_joined TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_therapists_org
		ON therapists(id, organization_id) WHERE organization_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_therapists_unscoped
		ON therapists(id) WHERE organization_id IS NULL;
	CREATE INDEX IF NOT EXISTS idx_therapists_organization
		ON therapists(organization_id);

	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY,
		therapist_id TEXT NOT NULL,
		interaction_date TEXT NOT NULL,
		counter INTEGER NOT NULL CHECK (counter >= 1),
		chat_count INTEGER NOT NULL DEFAULT 0 CHECK (chat_count >= 0),
		call_count INTEGER NOT NULL DEFAULT 0 CHECK (call_count >= 0),
		UNIQUE (therapist_id, interaction_date, counter)
	);

	-- Removing the last row of a therapist removes its interactions
	CREATE TRIGGER IF NOT EXISTS trg_therapists_cascade_interactions
	AFTER DELETE ON therapists
	WHEN NOT EXISTS (SELECT 1 FROM therapists WHERE id = OLD.id)
	BEGIN
		DELETE FROM interactions WHERE therapist_id = OLD.id;
	END;

	CREATE TABLE IF NOT EXISTS total_therapists (
		id INTEGER PRIMARY KEY,
		organization_id INTEGER REFERENCES organizations(id) ON DELETE CASCADE,
		period_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_active INTEGER NOT NULL,
		value INTEGER NOT NULL CHECK (value >= 0)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_total_therapists_org
		ON total_therapists(organization_id, start_date, end_date, period_type, is_active)
		WHERE organization_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_total_therapists_global
		ON total_therapists(start_date, end_date, period_type, is_active)
		WHERE organization_id IS NULL;
	CREATE INDEX IF NOT EXISTS idx_total_therapists_end_date
		ON total_therapists(end_date);

	CREATE TABLE IF NOT EXISTS rates (
		id INTEGER PRIMARY KEY,
		organization_id INTEGER REFERENCES organizations(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		period_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		rate_value TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_rates_org
		ON rates(organization_id, type, start_date, end_date, period_type)
		WHERE organization_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rates_global
		ON rates(type, start_date, end_date, period_type)
		WHERE organization_id IS NULL;
	CREATE INDEX IF NOT EXISTS idx_rates_end_date
		ON rates(end_date);

	CREATE TABLE IF NOT EXISTS all_time_total_therapists (
		id INTEGER PRIMARY KEY,
		organization_id INTEGER REFERENCES organizations(id) ON DELETE CASCADE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_active INTEGER NOT NULL,
		value INTEGER NOT NULL CHECK (value >= 0)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_all_time_total_therapists_org
		ON all_time_total_therapists(organization_id, start_date, end_date, is_active)
		WHERE organization_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_all_time_total_therapists_global
		ON all_time_total_therapists(start_date, end_date, is_active)
		WHERE organization_id IS NULL;

	CREATE TABLE IF NOT EXISTS all_time_rates (
		id INTEGER PRIMARY KEY,
		organization_id INTEGER REFERENCES organizations(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		rate_value TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_all_time_rates_org
		ON all_time_rates(organization_id, type, start_date, end_date)
		WHERE organization_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_all_time_rates_global
		ON all_time_rates(type, start_date, end_date)
		WHERE organization_id IS NULL;

	-- Accounts
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 0,
		date_joined TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username
		ON users(username COLLATE NOCASE);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
		ON users(email COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS auth_tokens (
		id TEXT PRIMARY KEY,
		digest TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		expiry TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_auth_tokens_user
		ON auth_tokens(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is the repository bound to one database transaction. It implements
// organization.Repository and reporting.Repository.
type Tx struct {
	q querier
}

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type organizationTx struct{ s *Store }

func (a organizationTx) WithTx(ctx context.Context, fn func(organization.Repository) error) error {
	return a.s.WithTx(ctx, func(tx *Tx) error { return fn(tx) })
}

// Organizations returns the transaction runner for organization syncs.
func (s *Store) Organizations() organization.TxRunner {
	return organizationTx{s: s}
}

type reportingTx struct{ s *Store }

func (a reportingTx) WithTx(ctx context.Context, fn func(reporting.Repository) error) error {
	return a.s.WithTx(ctx, func(tx *Tx) error { return fn(tx) })
}

// Reporting returns the transaction runner for reporting syncs.
func (s *Store) Reporting() reporting.TxRunner {
	return reportingTx{s: s}
}

// =============================================================================
// HELPERS
// =============================================================================

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// wrapWriteError maps constraint violations to generic.ErrIntegrity.
func wrapWriteError(op string, err error) error {
	if isConstraintError(err) {
		return fmt.Errorf("%s: %w: %w", op, generic.ErrIntegrity, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

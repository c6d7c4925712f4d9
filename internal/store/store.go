// Package store is the persistence gateway: typed, parameterized access to
// users, supplies, supply history, reset tokens and settings.
//
// Entity functions take a Querier so they run the same against the pool or
// inside a transaction opened by Store.Update/View. Single-row lookups return
// nil, nil when nothing matches.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/ossms/internal/errs"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

var (
	_ Querier = (*sqlx.DB)(nil)
	_ Querier = (*sqlx.Tx)(nil)
)

// Store owns the database handle and serializes access to it. Every command
// holds the lock for its whole read-modify-write sequence.
type Store struct {
	mu sync.Mutex
	db *sqlx.DB
}

// New wraps an open database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle. Callers must not use it concurrently with
// Update or View.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Update runs fn in a transaction under the store lock and commits if fn
// returns nil. Unclassified errors are reported as storage failures.
func (s *Store) Update(ctx context.Context, fn func(q Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Storage(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return errs.Storage(err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Storage(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// View runs fn in a transaction under the store lock and always rolls it
// back.
func (s *Store) View(ctx context.Context, fn func(q Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Storage(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	return errs.Storage(fn(tx))
}

// newID returns a fresh opaque record id.
func newID() string {
	return uuid.NewString()
}

// now returns the current time truncated to microseconds in UTC.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// orNow returns t, or the current time if t is zero.
func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return now()
	}
	return t.UTC()
}

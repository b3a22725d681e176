package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// QueryObserver receives per-query timings, typically the metrics service.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// SQLStore implements Store over sqlx. Queries are written with '?' placeholders and
// rebound for the active driver, so the same store serves Postgres and SQLite.
type SQLStore struct {
	db       *sqlx.DB
	ext      sqlx.ExtContext
	tx       *sqlx.Tx
	observer QueryObserver
}

// SQLStoreOption configures the store.
type SQLStoreOption func(*SQLStore)

// WithQueryObserver records query durations.
func WithQueryObserver(observer QueryObserver) SQLStoreOption {
	return func(s *SQLStore) {
		s.observer = observer
	}
}

// NewSQLStore creates a new store instance.
func NewSQLStore(db *sqlx.DB, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{db: db, ext: db}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithinTx implements Store.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return s.inTx(ctx, func(tx *SQLStore) error {
		return fn(tx)
	})
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*SQLStore) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	child := &SQLStore{db: s.db, ext: tx, tx: tx, observer: s.observer}
	if err := fn(child); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) rebind(query string) string {
	return s.ext.Rebind(query)
}

func (s *SQLStore) observe(label string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// insertReturningID executes an INSERT ... RETURNING id statement.
func (s *SQLStore) insertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := s.ext.QueryRowxContext(ctx, s.rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nowUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

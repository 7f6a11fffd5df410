// Package sqlstore implements database.Store over sqlx for any SQL dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	// OnConflictIgnore is appended to INSERT statements that must skip duplicates.
	OnConflictIgnore string
	// Returning reports whether INSERT ... RETURNING id is supported.
	Returning bool
	// TranslateError maps driver errors to database.ErrDuplicate or
	// database.ErrNotFound; other errors are returned unchanged.
	TranslateError func(error) error
}

// Store implements database.Store.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

var _ database.Store = (*Store)(nil)

// New wraps an open sqlx connection. Queries are written with ? placeholders
// and rebound for the driver.
func New(db *sqlx.DB, dialect Dialect) *Store {
	if dialect.TranslateError == nil {
		dialect.TranslateError = func(err error) error { return err }
	}
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// insert runs an INSERT and returns the new id. When the statement carries the
// dialect's conflict clause, inserted is false for skipped duplicates.
func (s *Store) insert(ctx context.Context, query string, args ...any) (id int64, inserted bool, err error) {
	return s.insertWith(ctx, s.db, query, args...)
}

// insertWith is insert on an explicit connection or transaction.
func (s *Store) insertWith(ctx context.Context, db sqlx.ExtContext, query string, args ...any) (id int64, inserted bool, err error) {
	if s.dialect.Returning {
		err = db.QueryRowxContext(ctx, db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, s.dialect.TranslateError(err)
		}
		return id, true, nil
	}

	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, false, s.dialect.TranslateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("reading insert id: %w", err)
	}
	return id, true, nil
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// execOne runs a statement expected to touch a row, returning ErrNotFound otherwise.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return s.dialect.TranslateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

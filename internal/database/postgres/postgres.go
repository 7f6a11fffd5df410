// Package postgres opens the attendance store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/sqlstore"
)

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Dialect is the PostgreSQL flavour of SQL used by sqlstore.
var Dialect = sqlstore.Dialect{
	OnConflictIgnore: " ON CONFLICT DO NOTHING",
	Returning:        true,
	TranslateError:   translateError,
}

func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", database.ErrDuplicate, pqErr.Message)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", database.ErrNotFound, pqErr.Message)
	}
	return err
}

// NewPool opens a PostgreSQL connection pool and verifies it.
func NewPool(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool.
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func init() {
	database.RegisterBackend("postgres", func(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
		store, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
}

// Open connects, applies pending migrations and returns the store.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*sqlstore.Store, error) {
	db, err := NewPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	store := sqlstore.New(db, Dialect)
	if err := Migrate(ctx, store); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Package mariadb opens the attendance store on MariaDB or MySQL.
package mariadb

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MySQL server error numbers.
const (
	errDupEntry        = 1062
	errNoReferencedRow = 1452
)

// Dialect is the MariaDB flavour of SQL used by sqlstore.
var Dialect = sqlstore.Dialect{
	OnConflictIgnore: " ON DUPLICATE KEY UPDATE id = id",
	Returning:        false,
	TranslateError:   translateError,
}

func translateError(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case errDupEntry:
		return fmt.Errorf("%w: %s", database.ErrDuplicate, myErr.Message)
	case errNoReferencedRow:
		return fmt.Errorf("%w: %s", database.ErrNotFound, myErr.Message)
	}
	return err
}

// NewPool opens a MariaDB connection pool. The DSN is normalized so DATE and
// DATETIME columns scan into time.Time and migrations may hold several statements.
func NewPool(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := mysql.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	dsn.ParseTime = true
	dsn.MultiStatements = true

	db, err := sqlx.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded MariaDB migrations.
func Migrate(ctx context.Context, store *sqlstore.Store) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return store.Migrate(ctx, sub)
}

func init() {
	database.RegisterBackend("mariadb", func(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
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
		return nil, err
	}

	store := sqlstore.New(db, Dialect)
	if err := Migrate(ctx, store); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

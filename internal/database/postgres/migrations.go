package postgres

import (
	"context"
	"embed"
	"io/fs"

	"github.com/kozaktomas/face-attendance/internal/database/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded PostgreSQL migrations.
func Migrate(ctx context.Context, store *sqlstore.Store) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return store.Migrate(ctx, sub)
}

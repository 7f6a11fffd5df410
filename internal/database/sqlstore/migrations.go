package sqlstore

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/logging"
)

// getAppliedMigrations returns a set of already-applied migration versions.
func (s *Store) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	var versions []string
	if err := s.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}

	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// getPendingMigrationFiles returns sorted SQL migration filenames not yet applied.
func getPendingMigrationFiles(migrations fs.FS, applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Migrate applies every pending migration in migrations, one transaction per file.
func (s *Store) Migrate(ctx context.Context, migrations fs.FS) error {
	applied, err := s.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := getPendingMigrationFiles(migrations, applied)
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := fs.ReadFile(migrations, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction for %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, s.q("INSERT INTO schema_migrations (version) VALUES (?)"), file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}

		logging.Info(logging.Fields{"migration": file}, "applied migration")
	}

	return nil
}

// MigrationsApplied returns the list of applied migrations
func (s *Store) MigrationsApplied(ctx context.Context) ([]string, error) {
	var versions []string
	if err := s.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations ORDER BY version"); err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	return versions, nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Connect to the configured database, apply any pending schema migrations
and list the migrations that have been applied.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

type migrationLister interface {
	MigrationsApplied(ctx context.Context) ([]string, error)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	// Opening the store migrates it.
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	lister, ok := store.(migrationLister)
	if !ok {
		fmt.Println("Migrations applied")
		return nil
	}
	applied, err := lister.MigrationsApplied(ctx)
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	fmt.Printf("%d migrations applied:\n", len(applied))
	for _, name := range applied {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

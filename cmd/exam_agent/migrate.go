package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/exam-automation/internal/db"
	"github.com/spf13/cobra"
)

var (
	migrateDatabaseURL string
	migrateDryRun      bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Apply the embedded SQL migrations that have not yet been recorded in schema_migrations.",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDatabaseURL, "db-url", "", "Database URL (overrides DATABASE_URL env var)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "List pending migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	database, err := connectDB(ctx, migrateDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	pending, err := database.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		_, _ = fmt.Fprintln(out, "Database is up to date")
		return nil
	}
	for _, m := range pending {
		_, _ = fmt.Fprintf(out, "pending: %s_%s\n", m.Version, m.Name)
	}
	if migrateDryRun {
		return nil
	}

	if err := database.Migrate(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Applied %d migration(s)\n", len(pending))
	return nil
}

// connectDB opens the database named by flagValue, falling back to DATABASE_URL.
func connectDB(ctx context.Context, flagValue string) (*db.DB, error) {
	databaseURL := flagValue
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required (set DATABASE_URL environment variable or use --db-url flag)")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// Command migrate manages the schema of the local SQLite document database.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"affiliate_shoppe/migrations"
)

const defaultDBPath = "./data/documents.db"

func main() {
	if err := newMigrateCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMigrateCommand() *cobra.Command {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or inspect migrations of the SQLite document database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", dbPath, "Path to the sqlite database")

	steps := []struct {
		use, short string
		run        func(*sql.DB, string, ...goose.OptionsFunc) error
	}{
		{"up", "Migrate to the latest version", goose.Up},
		{"up-one", "Migrate one version up", goose.UpByOne},
		{"down", "Roll back one version", goose.Down},
		{"status", "Show migration status", goose.Status},
		{"version", "Show current version", goose.Version},
		{"reset", "Roll back all migrations (drops stored documents and the kv tree)", goose.Reset},
	}
	for _, step := range steps {
		root.AddCommand(&cobra.Command{
			Use:   step.use,
			Short: step.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				conn, err := sql.Open("sqlite", dbPath)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer func() { _ = conn.Close() }()

				if err := migrations.Setup(); err != nil {
					return fmt.Errorf("setup migrations: %w", err)
				}
				if err := step.run(conn, "."); err != nil {
					return fmt.Errorf("%s: %w", step.use, err)
				}
				return nil
			},
		})
	}
	return root
}

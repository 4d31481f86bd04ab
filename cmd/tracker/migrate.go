package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"code_tracker/migrations"
)

var migrateDB string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the checkpoint schema",
	Long:  `Apply or inspect schema migrations. Per-game code tables are not versioned; they are created from the game registry on start.`,
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDB, "db", "", "path to sqlite database (defaults to DATABASE_PATH or ./data/codes.db)")

	steps := []struct {
		use   string
		short string
		run   func(*sql.DB) error
	}{
		{"up", "Migrate to the latest version", func(db *sql.DB) error { return goose.Up(db, ".") }},
		{"up-one", "Migrate one version up", func(db *sql.DB) error { return goose.UpByOne(db, ".") }},
		{"down", "Roll back one version", func(db *sql.DB) error { return goose.Down(db, ".") }},
		{"status", "Show migration status", func(db *sql.DB) error { return goose.Status(db, ".") }},
		{"version", "Show current version", func(db *sql.DB) error { return goose.Version(db, ".") }},
		{"reset", "Roll back all migrations", func(db *sql.DB) error { return goose.Reset(db, ".") }},
	}
	for _, s := range steps {
		migrateCmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return runMigration(s.use, s.run)
			},
		})
	}
	rootCmd.AddCommand(migrateCmd)
}

func runMigration(name string, step func(*sql.DB) error) error {
	path := migrateDB
	if path == "" {
		path = os.Getenv("DATABASE_PATH")
	}
	if path == "" {
		path = "./data/codes.db"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := step(db); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

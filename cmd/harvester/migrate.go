package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/config"
	"github.com/helixir/pubmed-harvester/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the selected store",
	Long: `Apply the embedded schema migrations to the store chosen with --store.
Other commands migrate the sqlite store on open; PostgreSQL is only
migrated by this command or by database.migration_auto_run.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.LoggerFromConfig(cfg.Logging).With().Str("component", "cli").Logger()

	var migrator *database.Migrator
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		migrator, err = database.NewSQLiteMigrator(cfg.Store.SQLitePath, logger)
		if err != nil {
			return err
		}
	default:
		db, err := database.New(cmd.Context(), &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		migrator, err = database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return err
		}
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	out := struct {
		Store   string `json:"store"`
		Version uint   `json:"version"`
		Dirty   bool   `json:"dirty"`
	}{cfg.Store.Driver, version, dirty}

	if humanOutput {
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (dirty: %t)\n", out.Store, out.Version, out.Dirty)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

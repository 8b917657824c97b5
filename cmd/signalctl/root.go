package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/config"
	"github.com/origo/signalcheck/internal/database"
	"github.com/origo/signalcheck/internal/migrations"
)

// globals holds flags shared by every subcommand. Empty values fall back to
// the same environment the server reads.
type globals struct {
	dbPath      string
	catalogPath string
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "signalctl",
		Short: "Operator tooling for the Signal Check assessment",
		Long: `signalctl inspects the question catalog, previews scores and manages
the lead database behind the Signal Check server.

Database and catalog locations default to DB_PATH and CATALOG_PATH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (default $DB_PATH)")
	root.PersistentFlags().StringVar(&g.catalogPath, "catalog", "", "catalog YAML file (default $CATALOG_PATH or built-in)")

	root.AddCommand(
		newCatalogCmd(g),
		newScoreCmd(g),
		newExportCmd(g),
		newAdminCmd(g),
		newMigrateCmd(g),
	)
	return root
}

func (g *globals) resolve() error {
	if g.dbPath != "" && g.catalogPath != "" {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if g.dbPath == "" {
		g.dbPath = cfg.DBPath
	}
	if g.catalogPath == "" {
		g.catalogPath = cfg.CatalogPath
	}
	return nil
}

func (g *globals) catalog() (*assessment.Catalog, error) {
	if err := g.resolve(); err != nil {
		return nil, err
	}
	if g.catalogPath == "" {
		return assessment.Default()
	}
	return assessment.LoadCatalog(g.catalogPath)
}

// openDB opens the database and brings its schema up to date.
func (g *globals) openDB(cmd *cobra.Command) (*sql.DB, error) {
	if err := g.resolve(); err != nil {
		return nil, err
	}
	db, err := database.Open(cmd.Context(), g.dbPath)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

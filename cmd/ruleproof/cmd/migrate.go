package cmd

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/solatis/ruleproof/internal/core/catalog"
	"github.com/solatis/ruleproof/internal/core/config"
	"github.com/solatis/ruleproof/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the catalog database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending schema migrations",
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	database, err := openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.MigrateUp(database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	database, err := openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, s := range statuses {
		if s.Applied {
			at := ""
			if s.AppliedAt != nil {
				at = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("applied  %s  (%d ms at %s)\n", s.ID, s.ExecutionMs, at)
		} else {
			fmt.Printf("pending  %s\n", s.ID)
		}
	}
	return nil
}

// openCatalog resolves the catalog URL from --db-url, falling back to the
// RP_DB_URL environment variable, and opens the connection.
func openCatalog() (*sqlx.DB, error) {
	url := dbURL
	if url == "" {
		var err error
		url, err = config.DatabaseURL()
		if err != nil {
			return nil, err
		}
	}
	if url == "" {
		return nil, fmt.Errorf("--db-url required (or set RP_DB_URL)")
	}
	if err := config.ValidateDatabaseURL(url); err != nil {
		return nil, err
	}

	database, err := db.Open(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// ensureMigrated fails fast when the catalog schema is missing, so save
// paths point at the fix instead of surfacing a bare SQL error.
func ensureMigrated(database *sqlx.DB) error {
	var migrationID string
	checkQuery := `SELECT migration_id FROM migrations WHERE migration_id = '001_initial_schema.sql'`
	err := database.Get(&migrationID, database.Rebind(checkQuery))
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("catalog schema not initialized - run 'ruleproof migrate up' first")
		}
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	return nil
}

// openStore opens the catalog and returns a ready Store. The caller owns
// closing the returned connection.
func openStore() (*sqlx.DB, *catalog.Store, error) {
	database, err := openCatalog()
	if err != nil {
		return nil, nil, err
	}
	if err := ensureMigrated(database); err != nil {
		database.Close()
		return nil, nil, err
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, catalog.NewStore(queries), nil
}

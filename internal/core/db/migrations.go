package db

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/ruleproof/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

// migration is one parsed schema file.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// migrationSource selects the embedded schema directory for the driver.
func migrationSource(driver string) (embed.FS, string, error) {
	switch driver {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// MigrateUp applies every pending migration in filename order. Checksums of
// already-applied migrations are validated first, so an edited schema file
// fails loudly instead of silently diverging from the catalog.
func MigrateUp(conn *sqlx.DB) error {
	fsys, dir, err := migrationSource(conn.DriverName())
	if err != nil {
		return err
	}

	if err := createMigrationsTable(conn); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to parse migrations: %w", err)
	}

	if err := validateChecksums(conn, migrations); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	applied, err := getAppliedMigrations(conn)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}

		start := time.Now()

		// Execution and recording share one transaction so a failure
		// cannot leave an applied-but-unrecorded migration behind.
		tx, err := conn.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
		}

		if err := applyMigration(tx, m); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}

		if err := recordMigration(tx, m.ID, m.Checksum, time.Since(start)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
		}
	}

	return nil
}

// MigrateStatus returns the state of every known migration, applied or not.
func MigrateStatus(conn *sqlx.DB) ([]MigrationStatus, error) {
	fsys, dir, err := migrationSource(conn.DriverName())
	if err != nil {
		return nil, err
	}

	if err := createMigrationsTable(conn); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	rows, err := conn.Queryx("SELECT migration_id, checksum, applied_at, execution_ms FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]MigrationStatus)
	for rows.Next() {
		var status MigrationStatus
		if err := rows.Scan(&status.ID, &status.Checksum, &status.AppliedAt, &status.ExecutionMs); err != nil {
			return nil, err
		}
		status.Applied = true
		applied[status.ID] = status
	}

	var statuses []MigrationStatus
	for _, m := range migrations {
		if s, ok := applied[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{
			ID:       m.ID,
			Checksum: m.Checksum,
			Applied:  false,
		})
	}

	return statuses, nil
}

// parseMigrationFiles extracts the ordered migration list from an embed.FS.
func parseMigrationFiles(fsys embed.FS, dir string) ([]migration, error) {
	var migrations []migration

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}

		content, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		hash := sha256.Sum256(content)
		migrations = append(migrations, migration{
			ID:       filepath.Base(path),
			Checksum: fmt.Sprintf("%x", hash),
			SQL:      string(content),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Filename order is execution order.
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})

	return migrations, nil
}

// createMigrationsTable ensures the tracking table exists. The sqlite
// variant stores applied_at as RFC3339 text, postgres as a timestamp.
func createMigrationsTable(conn *sqlx.DB) error {
	var createSQL string

	if conn.DriverName() == "sqlite3" {
		createSQL = `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TEXT NOT NULL,
				execution_ms INTEGER NOT NULL,
				CHECK (applied_at LIKE '____-__-__T__:__:__Z')
			)
		`
	} else {
		createSQL = `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
				execution_ms INTEGER NOT NULL
			)
		`
	}

	_, err := conn.Exec(createSQL)
	return err
}

// getAppliedMigrations returns the set of applied migration IDs.
func getAppliedMigrations(conn *sqlx.DB) (map[string]bool, error) {
	rows, err := conn.Queryx("SELECT migration_id FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}

	return applied, nil
}

// validateChecksums verifies applied migrations still match the embedded
// files byte for byte.
func validateChecksums(conn *sqlx.DB, migrations []migration) error {
	rows, err := conn.Queryx("SELECT migration_id, checksum FROM migrations")
	if err != nil {
		return err
	}
	defer rows.Close()

	checksums := make(map[string]string, len(migrations))
	for _, m := range migrations {
		checksums[m.ID] = m.Checksum
	}

	for rows.Next() {
		var id, dbChecksum string
		if err := rows.Scan(&id, &dbChecksum); err != nil {
			return err
		}

		expected, ok := checksums[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if dbChecksum != expected {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, expected, dbChecksum)
		}
	}

	return nil
}

// applyMigration executes one schema file inside the given transaction.
func applyMigration(tx *sqlx.Tx, m migration) error {
	// lib/pq rejects multiple statements per Exec, so split on semicolons.
	// Comment lines are stripped per statement so a leading comment block
	// does not swallow the statement after it.
	for _, stmt := range strings.Split(m.SQL, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		if _, err := tx.Exec(strings.Join(lines, "\n")); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	return nil
}

// recordMigration stores the audit row for one applied migration.
func recordMigration(tx *sqlx.Tx, id, checksum string, duration time.Duration) error {
	now := time.Now().UTC()
	executionMs := duration.Milliseconds()

	if tx.DriverName() == "sqlite3" {
		_, err := tx.Exec(
			"INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)",
			id, checksum, now.Format(time.RFC3339), executionMs,
		)
		return err
	}

	_, err := tx.Exec(
		"INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES ($1, $2, $3, $4)",
		id, checksum, now, executionMs,
	)
	return err
}

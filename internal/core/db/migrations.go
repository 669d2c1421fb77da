package db

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	embeddedmigrations "github.com/formkeeper/formkeeper/migrations"
)

// migration is one parsed SQL file, identified by filename.
type migration struct {
	ID       string
	SQL      string
	Checksum string
}

// MigrationStatus reports the state of a single migration.
type MigrationStatus struct {
	ID        string
	Checksum  string
	Applied   bool
	AppliedAt *time.Time
}

// MigrateUp runs all pending migrations against the database.
// Selects the embedded migration set for the active driver, validates the
// checksums of already-applied migrations (SHA-256 detects modification of
// applied files), and applies the rest in filename order.
func MigrateUp(conn *sqlx.DB) error {
	migrationsFS, dir, err := migrationSet(conn.DriverName())
	if err != nil {
		return err
	}

	if err := createMigrationsTable(conn); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrationFiles(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to parse migrations: %w", err)
	}

	applied, err := appliedChecksums(conn)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, m := range migrations {
		checksum, ok := applied[m.ID]
		if ok {
			if checksum != m.Checksum {
				return fmt.Errorf("migration %s checksum mismatch: applied %s, embedded %s", m.ID, checksum, m.Checksum)
			}
			continue
		}

		start := time.Now()
		if _, err := conn.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.ID, err)
		}
		record := `INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)`
		_, err = conn.Exec(conn.Rebind(record),
			m.ID, m.Checksum, time.Now().UTC().Format(time.RFC3339), time.Since(start).Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
	}

	return nil
}

// MigrationStatuses lists every embedded migration with its applied state.
func MigrationStatuses(conn *sqlx.DB) ([]MigrationStatus, error) {
	migrationsFS, dir, err := migrationSet(conn.DriverName())
	if err != nil {
		return nil, err
	}
	if err := createMigrationsTable(conn); err != nil {
		return nil, err
	}
	migrations, err := parseMigrationFiles(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	applied, err := appliedChecksums(conn)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		_, ok := applied[m.ID]
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum, Applied: ok})
	}
	return statuses, nil
}

func migrationSet(driver string) (embed.FS, string, error) {
	switch driver {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func createMigrationsTable(conn *sqlx.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum     TEXT NOT NULL,
			applied_at   TEXT NOT NULL,
			execution_ms INTEGER NOT NULL
		)`)
	return err
}

func parseMigrationFiles(migrationsFS embed.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := migrationsFS.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(content)
		migrations = append(migrations, migration{
			ID:       entry.Name(),
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	// Filename order defines application order (001_, 002_, ...).
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return migrations, nil
}

func appliedChecksums(conn *sqlx.DB) (map[string]string, error) {
	rows, err := conn.Queryx(`SELECT migration_id, checksum FROM migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var id, checksum string
		if err := rows.Scan(&id, &checksum); err != nil {
			return nil, err
		}
		applied[id] = checksum
	}
	return applied, rows.Err()
}

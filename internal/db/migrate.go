// Package db provides database schema migration management.
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Migration represents an applied database schema migration.
type Migration struct {
	Version     int
	AppliedAt   time.Time
	Description string
	Checksum    string
}

// migration is a pending schema change compiled into the binary.
type migration struct {
	version     int
	description string
	statements  string
}

// Migrator handles database schema migrations.
type Migrator struct {
	db         *sql.DB
	migrations []migration
}

// NewMigrator creates a new Migrator with the built-in migration set.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, migrations: schemaMigrations}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	_, err := m.db.Exec(query)
	return err
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// AppliedMigrations returns all applied migrations.
func (m *Migrator) AppliedMigrations() ([]Migration, error) {
	rows, err := m.db.Query("SELECT version, applied_at, description, checksum FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var migrations []Migration
	for rows.Next() {
		var mig Migration
		var appliedAt int64
		if err := rows.Scan(&mig.Version, &appliedAt, &mig.Description, &mig.Checksum); err != nil {
			return nil, err
		}
		mig.AppliedAt = time.Unix(appliedAt, 0)
		migrations = append(migrations, mig)
	}
	return migrations, rows.Err()
}

// Up applies all pending migrations in version order. A migration whose
// recorded checksum no longer matches its compiled-in SQL aborts the run.
func (m *Migrator) Up() error {
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	applied, err := m.AppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	appliedByVersion := make(map[int]Migration, len(applied))
	for _, mig := range applied {
		appliedByVersion[mig.Version] = mig
	}

	pending := make([]migration, len(m.migrations))
	copy(pending, m.migrations)
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].version < pending[j].version
	})

	for _, mig := range pending {
		sum := checksum(mig.statements)

		if prev, ok := appliedByVersion[mig.version]; ok {
			if prev.Checksum != sum {
				return fmt.Errorf("migration %d checksum mismatch: applied %s, compiled %s",
					mig.version, prev.Checksum, sum)
			}
			continue
		}

		if err := m.apply(mig, sum); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", mig.version, mig.description, err)
		}
	}

	return nil
}

// apply runs one migration and records it, atomically.
func (m *Migrator) apply(mig migration, sum string) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(mig.statements); err != nil {
		return err
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
		mig.version, time.Now().Unix(), mig.description, sum,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// checksum returns the hex SHA-256 of the migration SQL.
func checksum(statements string) string {
	sum := sha256.Sum256([]byte(statements))
	return hex.EncodeToString(sum[:])
}

// Package migration wraps golang-migrate for the PostgreSQL schema this
// core owns, applied by cmd/migrate and verified (never applied) by the
// readiness supervisor at runtime.
package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Manager drives golang-migrate against the migrations/ directory bundled
// with the binary.
type Manager struct {
	m *migrate.Migrate
}

// New opens a migration manager against databaseURL, sourcing migrations
// from sourcePath (a "file://" directory) and tracking applied versions
// in migrationsTable.
func New(databaseURL, sourcePath, migrationsTable string) (*Manager, error) {
	db, err := migrate.New("file://"+sourcePath, withMigrationsTable(databaseURL, migrationsTable))
	if err != nil {
		return nil, fmt.Errorf("opening migrate instance: %w", err)
	}
	return &Manager{m: db}, nil
}

func withMigrationsTable(databaseURL, table string) string {
	if table == "" || table == "schema_migrations" {
		return databaseURL
	}
	sep := "?"
	if strings.Contains(databaseURL, "?") {
		sep = "&"
	}
	return databaseURL + sep + "x-migrations-table=" + table
}

// Up applies all pending migrations.
func (m *Manager) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Down rolls back one migration.
func (m *Manager) Down() error {
	if err := m.m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	return nil
}

// Status reports the current schema version and whether it is dirty
// (the marker the readiness supervisor checks before serving traffic).
func (m *Manager) Status() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Force sets the schema version without running migrations, clearing a
// dirty flag left by a previously interrupted migration.
func (m *Manager) Force(version int) error {
	return m.m.Force(version)
}

// Close releases the underlying source and database handles.
func (m *Manager) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/deskchat/internal/store/migrations"
)

// ErrDirtySchema is returned when an earlier migration stopped halfway. The
// archive has to be repaired or removed by hand.
var ErrDirtySchema = errors.New("archive schema is dirty")

// MigrateResult describes the schema after Migrate.
type MigrateResult struct {
	Version uint
	Changed bool
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}
	return m, nil
}

// Migrate applies every pending migration.
func (db *DB) Migrate() (*MigrateResult, error) {
	m, err := db.migrator()
	if err != nil {
		return nil, err
	}

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return nil, fmt.Errorf("schema version: %w", err)
	case dirty:
		return nil, fmt.Errorf("%w at version %d", ErrDirtySchema, before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("schema version: %w", err)
	}
	return &MigrateResult{Version: after, Changed: after != before}, nil
}

// SchemaVersion reports the applied schema version, or 0 for a new archive.
func (db *DB) SchemaVersion() (uint, error) {
	m, err := db.migrator()
	if err != nil {
		return 0, err
	}
	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return v, err
}

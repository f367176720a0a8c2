package sqlconfig

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/carson-networks/mission-server/migrations"
)

// MigrationResult reports the schema version before and after Migrate.
type MigrationResult struct {
	PreviousVersion uint
	CurrentVersion  uint
}

// Migrate applies every pending embedded migration.
func Migrate(db *sql.DB) (*MigrationResult, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("iofs.New: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres.WithInstance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate.NewWithInstance: %w", err)
	}

	previous, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		previous = 0
	} else if err != nil {
		return nil, fmt.Errorf("m.Version.previous: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("m.Up: %w", err)
	}

	current, _, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("m.Version.current: %w", err)
	}
	return &MigrationResult{PreviousVersion: previous, CurrentVersion: current}, nil
}

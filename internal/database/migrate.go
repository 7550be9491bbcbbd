package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type Migrator struct {
	m *migrate.Migrate
}

// MigrationStatus reports the schema version before and after a run.
type MigrationStatus struct {
	From    uint
	To      uint
	Applied bool
}

// NewMigrator accepts a postgres:// DSN and rewrites it for the pgx/v5 driver.
func NewMigrator(dsn, migrationsPath string) (*Migrator, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		pgxMigrateURL(dsn),
	)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// RunMigrations applies every pending migration under dir.
func RunMigrations(dsn, dir string) (MigrationStatus, error) {
	m, err := NewMigrator(dsn, dir)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

func pgxMigrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// Up applies pending migrations. An already current schema is not an error.
// A dirty schema is left for an operator to repair and force.
func (m *Migrator) Up() (MigrationStatus, error) {
	from, err := m.version()
	if err != nil {
		return MigrationStatus{}, err
	}
	status := MigrationStatus{From: from, To: from}

	if err := m.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return status, nil
		}
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return status, fmt.Errorf("running migrations: schema is dirty at version %d, repair it and force the version: %w", dirty.Version, err)
		}
		return status, fmt.Errorf("running migrations: %w", err)
	}

	to, err := m.version()
	if err != nil {
		return status, err
	}
	status.To = to
	status.Applied = to != from
	return status, nil
}

func (m *Migrator) version() (uint, error) {
	v, _, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

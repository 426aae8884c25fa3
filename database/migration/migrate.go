// Package migration applies the embedded postgres schema migrations with
// golang-migrate. Files follow VERSION_name.up.sql / VERSION_name.down.sql.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/fernandomesquita/stenopro/database"
	"github.com/fernandomesquita/stenopro/logger"
)

//go:embed sql/*.sql
var embedded embed.FS

// Source returns the embedded migration files rooted at their directory.
func Source() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// DriverFunc creates a migrate database driver from sql.DB.
type DriverFunc func(*sql.DB) (migratedb.Driver, error)

// Postgres is the DriverFunc for the postgres schema.
func Postgres(db *sql.DB) (migratedb.Driver, error) {
	return migratepg.WithInstance(db, &migratepg.Config{})
}

// Up applies all pending migrations. It matches database.MigrateFunc so the
// database component can run it on start.
func Up(ctx context.Context, db *database.DB) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := logger.Get("migration")
	m, err := newMigrator(db, Source(), Postgres)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	log.Info("Database schema up to date", map[string]interface{}{
		"version": version,
		"dirty":   dirty,
	})
	return nil
}

// Down rolls back every migration.
func Down(ctx context.Context, db *database.DB) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := newMigrator(db, Source(), Postgres)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the current migration version and dirty flag.
func Version(db *database.DB) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, Source(), Postgres)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}

// newMigrator creates a golang-migrate instance over src. Callers must not
// call m.Close(); it would close the shared sql.DB.
func newMigrator(db *database.DB, src fs.FS, driverFunc DriverFunc) (*migrate.Migrate, error) {
	sqlDB, err := db.GormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	driver, err := driverFunc(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

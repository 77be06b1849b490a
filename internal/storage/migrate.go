package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/wyrmwatch/worldserver/internal/storage/migrations"
)

var gooseOnce sync.Once

// SchemaVersion is the migration version this binary expects. RunMigrations
// brings the database up to it; a database ahead of this version (an
// operator ran a newer binary's migrations, then downgraded the binary)
// is refused by CheckVersion, following spec.md §4.7's single
// database-version guard.
const SchemaVersion = 6

// RunMigrations applies every embedded goose migration to dsn, following
// internal/db/migrate.go. This is the concrete form of spec.md's "verify a
// persisted database version equals the binary's supported version":
// goose's own version table is that persisted version.
func RunMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("storage: opening migration connection: %w", err)
	}
	defer sqlDB.Close()

	var dialectErr error
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		dialectErr = goose.SetDialect("postgres")
	})
	if dialectErr != nil {
		return fmt.Errorf("storage: setting goose dialect: %w", dialectErr)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("storage: running migrations: %w", err)
	}
	return nil
}

// CheckVersion refuses to serve traffic unless the database's migration
// version matches SchemaVersion exactly (spec.md §4.7 version guard).
func CheckVersion(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("storage: opening version-check connection: %w", err)
	}
	defer sqlDB.Close()

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("storage: reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("storage: schema version %d does not match expected %d", version, SchemaVersion)
	}
	return nil
}

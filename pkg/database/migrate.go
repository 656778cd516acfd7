package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
)

// migrationLock is the advisory lock key held while a migration applies, so
// replicas starting together do not race on the same version.
const migrationLock int64 = 0x6d656d6f6e746f

const upSuffix = ".up.sql"

// RunMigrations applies every *.up.sql file at the root of fsys in name
// order, recording each in schema_migrations. Each file runs in its own
// transaction. Lost connections are retried; SQL errors are returned.
func RunMigrations(ctx context.Context, db DBTX, fsys fs.FS, logger *slog.Logger) error {
	return DefaultRetry.Do(ctx, logger, "run migrations", IsTransient, func(ctx context.Context) error {
		return migrate(ctx, db, fsys, logger)
	})
}

// PendingMigrations lists the up migrations in fsys, sorted.
func PendingMigrations(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func migrate(ctx context.Context, db DBTX, fsys fs.FS, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := PendingMigrations(fsys)
	if err != nil {
		return err
	}

	applied := 0
	for _, name := range names {
		ok, err := applyOne(ctx, db, fsys, name)
		if err != nil {
			return err
		}
		if ok {
			applied++
			logger.InfoContext(ctx, "migration applied", slog.String("version", name))
		}
	}
	logger.InfoContext(ctx, "migrations up to date",
		slog.Int("applied", applied),
		slog.Int("total", len(names)),
	)
	return nil
}

func applyOne(ctx context.Context, db DBTX, fsys fs.FS, name string) (bool, error) {
	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", name, err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return false, fmt.Errorf("migration %s is empty", name)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLock); err != nil {
		return false, fmt.Errorf("lock migration %s: %w", name, err)
	}

	var done bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", name,
	).Scan(&done); err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	if done {
		return false, nil
	}

	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, fmt.Errorf("execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", name, err)
	}
	return true, nil
}

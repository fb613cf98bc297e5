package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/lueurxax/news-dedup/migrations"
)

// Migrate applies pending migrations and returns the resulting schema version.
// Instances starting together serialize on an advisory lock.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	var version int64

	err := db.WithAdvisoryLock(ctx, migrationLockID, func(ctx context.Context) error {
		sqlDB := stdlib.OpenDBFromPool(db.Pool)
		defer sqlDB.Close()

		provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.FS)
		if err != nil {
			return fmt.Errorf("create migration provider: %w", err)
		}

		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		for _, r := range results {
			db.Logger.Info().
				Int64("version", r.Source.Version).
				Str("file", r.Source.Path).
				Dur("took", r.Duration).
				Msg("migration applied")
		}

		version, err = provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}

		return nil
	})

	return version, err
}

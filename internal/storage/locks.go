package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WithAdvisoryLock runs fn while holding the session advisory lock lockID,
// waiting for other holders to finish first.
func (db *DB) WithAdvisoryLock(ctx context.Context, lockID int64, fn func(ctx context.Context) error) error {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return fmt.Errorf("acquire advisory lock %d: %w", lockID, err)
	}

	defer unlock(ctx, conn, lockID)

	return fn(ctx)
}

// WithTryAdvisoryLock is the non-blocking variant: it returns false without
// calling fn when another session holds the lock.
func (db *DB) WithTryAdvisoryLock(ctx context.Context, lockID int64, fn func(ctx context.Context) error) (bool, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		return false, fmt.Errorf("try acquire advisory lock %d: %w", lockID, err)
	}

	if !acquired {
		return false, nil
	}

	defer unlock(ctx, conn, lockID)

	return true, fn(ctx)
}

func unlock(ctx context.Context, conn *pgxpool.Conn, lockID int64) {
	//nolint:errcheck // the lock is released with the session anyway
	_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockID)
}

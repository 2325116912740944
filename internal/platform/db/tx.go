package db

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// WithTenantLock runs fn inside a transaction that holds a transaction-scoped
// advisory lock derived from the tenant key. Concurrent callers for the same
// tenant serialize; different tenants proceed in parallel. The lock is
// released automatically at commit or rollback.
func WithTenantLock(ctx context.Context, pool *pgxpool.Pool, tenant string, fn func(pgx.Tx) error) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, tenantLockKey(tenant)); err != nil {
			return fmt.Errorf("platform/db: tenant lock: %w", err)
		}
		return fn(tx)
	})
}

func tenantLockKey(tenant string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tenant))
	return int64(h.Sum64())
}

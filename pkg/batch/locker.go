package batch

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/revenuekit/pkg/pg"
)

// PGLocker implements TenantLocker with PostgreSQL advisory locks, so batch
// invocations on different hosts never recompute the same tenant at once.
type PGLocker struct {
	pool *pgxpool.Pool
}

// NewPGLocker creates an advisory-lock tenant locker.
// Panics on nil pool to fail fast during initialization.
func NewPGLocker(pool *pgxpool.Pool) *PGLocker {
	if pool == nil {
		panic("batch: pgxpool is required")
	}
	return &PGLocker{pool: pool}
}

func (l *PGLocker) Acquire(ctx context.Context, tenantID uuid.UUID) (func(), bool, error) {
	return pg.TryTenantLock(ctx, l.pool, tenantID)
}

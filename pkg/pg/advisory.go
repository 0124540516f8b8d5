package pg

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TryTenantLock attempts to take a session-scoped advisory lock for a tenant's
// analytics run. It returns (release, true) when the lock was acquired and
// (nil, false) when another invocation already holds it. The lock prevents two
// concurrent batch runs from recomputing the same tenant; the computation
// itself converges without it, so losing the race is a skip, not an error.
func TryTenantLock(ctx context.Context, pool *pgxpool.Pool, tenantID uuid.UUID) (release func(), acquired bool, err error) {
	key := tenantLockKey(tenantID)

	// The lock must live on a single session, so a connection is pinned for
	// the duration of the tenant's run.
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", key)
		conn.Release()
	}
	return release, true, nil
}

// tenantLockKey derives a stable 64-bit advisory lock key from a tenant UUID.
func tenantLockKey(tenantID uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write(tenantID[:])
	return int64(h.Sum64())
}

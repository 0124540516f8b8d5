package mrr

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot exists for a key.
	ErrSnapshotNotFound = errors.New("mrr: snapshot not found")
	// ErrSnapshotExists is returned by the calculator when a snapshot for the
	// requested key already exists and force recomputation was not requested.
	// Callers treat it as a skip, not a failure.
	ErrSnapshotExists = errors.New("mrr: snapshot already exists for this date")
)

// SnapshotStore persists materialized snapshots. Upsert must be atomic per
// key: two racing recomputations converge to the same values, so
// last-writer-wins is acceptable, but a write must never be observed half-done.
type SnapshotStore interface {
	// Get returns the snapshot for an exact (tenant, date, granularity) key,
	// or ErrSnapshotNotFound.
	Get(ctx context.Context, tenantID uuid.UUID, date time.Time, g Granularity) (*Snapshot, error)

	// Previous returns the most recent snapshot of the same granularity
	// strictly before date, or ErrSnapshotNotFound.
	Previous(ctx context.Context, tenantID uuid.UUID, date time.Time, g Granularity) (*Snapshot, error)

	// List returns snapshots for a tenant and granularity with dates in
	// [from, to], ascending.
	List(ctx context.Context, tenantID uuid.UUID, g Granularity, from, to time.Time) ([]Snapshot, error)

	// Upsert stores the snapshot, overwriting any existing row for its key.
	Upsert(ctx context.Context, s *Snapshot) error
}

// CurrentMRRCache refreshes the tenant's denormalized "current MRR" figure
// after each snapshot write. It is a derived cache: the snapshot table stays
// the source of truth, and a failed refresh is logged, never fatal.
type CurrentMRRCache interface {
	SetCurrentMRR(ctx context.Context, tenantID uuid.UUID, totalMRR int64) error
}

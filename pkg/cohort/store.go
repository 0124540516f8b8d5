package cohort

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when no cohort record exists for a key.
var ErrRecordNotFound = errors.New("cohort: record not found")

// RecordStore persists cohort records, one row per (tenant, cohort month),
// written as atomic upserts.
type RecordStore interface {
	// Get returns the record for an exact (tenant, cohort month) key,
	// or ErrRecordNotFound.
	Get(ctx context.Context, tenantID uuid.UUID, cohortMonth time.Time) (*Record, error)

	// List returns all of a tenant's cohort records, most recent cohort first.
	List(ctx context.Context, tenantID uuid.UUID) ([]Record, error)

	// Upsert stores the record, fully overwriting any existing row.
	Upsert(ctx context.Context, rec *Record) error
}

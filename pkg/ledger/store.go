package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidEvent rejects appends of events with unknown types or zero IDs.
	ErrInvalidEvent = errors.New("ledger: invalid event")
	// ErrInvalidRange rejects queries where from is not before to.
	ErrInvalidRange = errors.New("ledger: invalid time range")
)

// Reader provides read-only, range-scanned access to the event ledger.
// The analytics engine only ever reads; the billing event producer is the
// sole writer in production.
type Reader interface {
	// Range returns a tenant's events with occurred_at in (from, to],
	// ordered by occurred_at ascending. The half-open lower bound matches
	// the snapshot period convention so adjacent periods never double-count
	// an event. The zero UUID selects every tenant, for platform-wide
	// aggregation.
	Range(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Event, error)
}

// Recorder appends events. Exposed for the test fixtures and backfill
// tooling that construct synthetic ledgers; never used by the calculators.
type Recorder interface {
	Append(ctx context.Context, events ...Event) error
}

// Store combines ledger reading and recording.
type Store interface {
	Reader
	Recorder
}

func validateEvent(e Event) error {
	if !e.Type.Valid() {
		return ErrInvalidEvent
	}
	if e.TenantID == uuid.Nil || e.CustomerID == uuid.Nil {
		return ErrInvalidEvent
	}
	if e.OccurredAt.IsZero() {
		return ErrInvalidEvent
	}
	return nil
}

package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CustomerSource provides read access to current customer subscription state,
// filtered by tenant. Implementations must not expose mutation: the billing
// domain owns these records.
type CustomerSource interface {
	// Customers returns all customer subscription records for a tenant.
	// The zero UUID selects every tenant, for platform-wide aggregation.
	Customers(ctx context.Context, tenantID uuid.UUID) ([]Customer, error)

	// AcquisitionMonths returns the distinct months (first instant, UTC) in
	// which the tenant acquired customers, most recent first. It is a query,
	// not a stream: each call re-derives the list from current state.
	AcquisitionMonths(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error)
}

// TenantSource lists the tenants known to the platform, for looped-over-all-
// tenants batch invocations.
type TenantSource interface {
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

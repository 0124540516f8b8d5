package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/churn"
	"github.com/dmitrymomot/revenuekit/pkg/mrr"
)

// ChurnAdapter exposes the churn calculator as a ChurnRateSource.
type ChurnAdapter struct {
	calc *churn.Calculator
}

// NewChurnAdapter wraps a churn calculator.
// Panics on nil calculator to fail fast during initialization.
func NewChurnAdapter(calc *churn.Calculator) *ChurnAdapter {
	if calc == nil {
		panic("health: churn calculator is required")
	}
	return &ChurnAdapter{calc: calc}
}

// ChurnRate computes the customer churn rate for the month containing the
// period start. The zero UUID computes it across all tenants; the customer
// and ledger stores treat it as an unfiltered query.
func (a *ChurnAdapter) ChurnRate(ctx context.Context, tenantID uuid.UUID, period Period) (float64, error) {
	rec, err := a.calc.Churn(ctx, tenantID, period.From)
	if err != nil {
		return 0, fmt.Errorf("health: churn rate: %w", err)
	}
	return rec.ChurnRate, nil
}

// GrowthAdapter exposes stored MRR snapshots as an MRRGrowthSource.
type GrowthAdapter struct {
	store   mrr.SnapshotStore
	tenants billing.TenantSource
}

// NewGrowthAdapter wraps a snapshot store and a tenant list. The tenant list
// backs the platform-wide path, which aggregates every tenant's latest
// snapshot. Panics on nil dependencies to fail fast during initialization.
func NewGrowthAdapter(store mrr.SnapshotStore, tenants billing.TenantSource) *GrowthAdapter {
	if store == nil {
		panic("health: snapshot store is required")
	}
	if tenants == nil {
		panic("health: tenant source is required")
	}
	return &GrowthAdapter{store: store, tenants: tenants}
}

// GrowthRate returns the growth rate of the tenant's latest snapshot inside
// the period, preferring monthly and falling back to daily for deployments
// that only compute daily snapshots. The zero UUID aggregates growth across
// all tenants. A tenant with no snapshots yet reads as flat growth rather
// than an unavailable source.
func (a *GrowthAdapter) GrowthRate(ctx context.Context, tenantID uuid.UUID, period Period) (float64, error) {
	if tenantID == uuid.Nil {
		return a.platformGrowthRate(ctx, period)
	}

	snap, err := a.latest(ctx, tenantID, period.To)
	if err != nil {
		return 0, fmt.Errorf("health: growth rate: %w", err)
	}
	if snap == nil {
		return 0, nil
	}
	return snap.GrowthRate, nil
}

// platformGrowthRate sums each tenant's latest snapshot: growth over the sum
// of previous totals. Snapshot invariant Growth = TotalMRR - previous.TotalMRR
// makes the previous total recoverable without a second store read.
func (a *GrowthAdapter) platformGrowthRate(ctx context.Context, period Period) (float64, error) {
	ids, err := a.tenants.TenantIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("health: platform growth rate: %w", err)
	}

	var total, growth int64
	for _, id := range ids {
		snap, err := a.latest(ctx, id, period.To)
		if err != nil {
			return 0, fmt.Errorf("health: platform growth rate: %w", err)
		}
		if snap == nil {
			continue
		}
		total += snap.TotalMRR
		growth += snap.Growth
	}

	prevTotal := total - growth
	if prevTotal <= 0 {
		return 0, nil
	}
	return float64(growth) / float64(prevTotal) * 100, nil
}

// latest returns the newest snapshot before at, trying monthly first and
// daily second. A nil snapshot with nil error means none exist.
func (a *GrowthAdapter) latest(ctx context.Context, tenantID uuid.UUID, at time.Time) (*mrr.Snapshot, error) {
	for _, g := range []mrr.Granularity{mrr.GranularityMonthly, mrr.GranularityDaily} {
		snap, err := a.store.Previous(ctx, tenantID, at, g)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, mrr.ErrSnapshotNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

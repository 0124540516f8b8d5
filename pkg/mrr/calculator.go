package mrr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/ledger"
	"github.com/dmitrymomot/revenuekit/pkg/logger"
)

// ErrInvalidDate rejects zero snapshot dates at the entry point.
var ErrInvalidDate = errors.New("mrr: snapshot date must not be zero")

// Calculator computes and persists MRR snapshots for one tenant at a time.
type Calculator struct {
	customers billing.CustomerSource
	events    ledger.Reader
	snapshots SnapshotStore
	cache     CurrentMRRCache // optional
	log       *slog.Logger
	now       func() time.Time
}

// NewCalculator creates a snapshot calculator.
// Panics if required dependencies are nil to fail fast during initialization.
func NewCalculator(customers billing.CustomerSource, events ledger.Reader, snapshots SnapshotStore, opts ...CalculatorOption) *Calculator {
	if customers == nil {
		panic("mrr: CustomerSource is required")
	}
	if events == nil {
		panic("mrr: ledger.Reader is required")
	}
	if snapshots == nil {
		panic("mrr: SnapshotStore is required")
	}

	c := &Calculator{
		customers: customers,
		events:    events,
		snapshots: snapshots,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot computes the MRR snapshot for a tenant at date with the given
// granularity and stores it as an atomic upsert.
//
// Recomputation is idempotent: the result is a pure function of ledger and
// subscription state at computation time. Without force, an existing snapshot
// for the same key short-circuits and the stored snapshot is returned together
// with ErrSnapshotExists so callers can count the call as a skip.
func (c *Calculator) Snapshot(ctx context.Context, tenantID uuid.UUID, date time.Time, g Granularity, force bool) (*Snapshot, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, ErrInvalidDate
	}

	date = NormalizeDate(date, g)

	if !force {
		if existing, err := c.snapshots.Get(ctx, tenantID, date, g); err == nil {
			return existing, ErrSnapshotExists
		} else if !errors.Is(err, ErrSnapshotNotFound) {
			return nil, fmt.Errorf("check existing snapshot: %w", err)
		}
	}

	snap := &Snapshot{
		TenantID:     tenantID,
		Date:         date,
		Granularity:  g,
		CalculatedAt: c.now(),
	}

	if err := c.aggregateCurrentMRR(ctx, snap); err != nil {
		return nil, err
	}
	if err := c.computeGrowth(ctx, snap); err != nil {
		return nil, err
	}
	if err := c.computeBreakdown(ctx, snap); err != nil {
		return nil, err
	}

	if err := c.snapshots.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("upsert snapshot %s/%s/%s: %w", tenantID, date.Format("2006-01-02"), g, err)
	}

	// The current-MRR figure on the tenant is a derived cache; a failed
	// refresh must not fail the snapshot that just committed.
	if c.cache != nil {
		if err := c.cache.SetCurrentMRR(ctx, tenantID, snap.TotalMRR); err != nil {
			c.log.WarnContext(ctx, "failed to refresh current MRR cache",
				logger.TenantID(tenantID), logger.Error(err))
		}
	}

	return snap, nil
}

// aggregateCurrentMRR sums monthly-normalized prices over billable customers,
// split into club (managed sub-accounts) and tenant (platform subscription)
// components. Customers with unusable price data contribute 0 with a warning;
// one bad record must not block the tenant's snapshot.
func (c *Calculator) aggregateCurrentMRR(ctx context.Context, snap *Snapshot) error {
	customers, err := c.customers.Customers(ctx, snap.TenantID)
	if err != nil {
		return fmt.Errorf("load customers for tenant %s: %w", snap.TenantID, err)
	}

	for _, cust := range customers {
		if !cust.Status.Billable() {
			continue
		}
		amount, ok := cust.MonthlyContribution()
		if !ok {
			c.log.WarnContext(ctx, "customer has unusable plan price, contributing 0 to MRR",
				logger.TenantID(snap.TenantID),
				logger.CustomerID(cust.CustomerID),
				slog.String("plan_id", cust.PlanID))
		}
		if amount <= 0 {
			continue
		}

		snap.CustomerCount++
		if cust.Managed {
			snap.ClubMRR += amount
		} else {
			snap.TenantMRR += amount
		}
	}
	snap.TotalMRR = snap.ClubMRR + snap.TenantMRR
	return nil
}

// computeGrowth derives growth figures from the immediately preceding snapshot
// of the same granularity. Division by zero is guarded: the rate is 0 when
// there is no previous snapshot or its total is 0.
func (c *Calculator) computeGrowth(ctx context.Context, snap *Snapshot) error {
	prev, err := c.snapshots.Previous(ctx, snap.TenantID, snap.Date, snap.Granularity)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("load previous snapshot: %w", err)
	}

	snap.Growth = snap.TotalMRR - prev.TotalMRR
	if prev.TotalMRR != 0 {
		snap.GrowthRate = float64(snap.Growth) / float64(prev.TotalMRR) * 100
	}
	return nil
}

// computeBreakdown decomposes the period's MRR movement from ledger events in
// (PeriodStart, Date], grouped by event type. Contraction and churn are
// reported as positive magnitudes.
func (c *Calculator) computeBreakdown(ctx context.Context, snap *Snapshot) error {
	events, err := c.events.Range(ctx, snap.TenantID, snap.PeriodStart(), snap.Date)
	if err != nil {
		return fmt.Errorf("load ledger events: %w", err)
	}

	for _, e := range events {
		switch e.Type {
		case ledger.EventSubscriptionCreated:
			snap.NewBusinessMRR += e.MRRChange
		case ledger.EventPlanUpgraded:
			snap.ExpansionMRR += e.MRRChange
		case ledger.EventPlanDowngraded:
			snap.ContractionMRR += abs(e.MRRChange)
		case ledger.EventSubscriptionCanceled, ledger.EventTrialExpired:
			snap.ChurnedMRR += abs(e.MRRChange)
		default:
			c.log.WarnContext(ctx, "skipping malformed ledger event",
				logger.TenantID(snap.TenantID),
				slog.String("event_type", string(e.Type)))
		}
	}
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

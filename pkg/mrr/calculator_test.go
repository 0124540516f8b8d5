package mrr_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/ledger"
	"github.com/dmitrymomot/revenuekit/pkg/mrr"
)

func activeCustomer(tenantID uuid.UUID, cents int64, managed bool) billing.Customer {
	return billing.Customer{
		TenantID:   tenantID,
		CustomerID: uuid.New(),
		PlanID:     "standard",
		Status:     billing.StatusActive,
		Price:      billing.Money{Amount: cents, Currency: "EUR"},
		Interval:   billing.BillingIntervalMonthly,
		Managed:    managed,
		StartedAt:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCalculatorSnapshot(t *testing.T) {
	ctx := context.Background()
	snapDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("sums monthly normalized prices over billable customers", func(t *testing.T) {
		tenantID := uuid.New()
		customers := billing.NewMemoryStore()
		customers.Add(
			activeCustomer(tenantID, 5000, true),
			activeCustomer(tenantID, 5000, true),
			activeCustomer(tenantID, 2900, false),
		)
		// Annual plan: 120000 cents/year contributes exactly 10000/month.
		annual := activeCustomer(tenantID, 120000, true)
		annual.Interval = billing.BillingIntervalAnnual
		customers.Add(annual)
		// Canceled customers contribute nothing.
		canceled := activeCustomer(tenantID, 9900, true)
		canceled.Status = billing.StatusCanceled
		ends := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		canceled.EndsAt = &ends
		customers.Add(canceled)

		store := mrr.NewMemoryStore()
		calc := mrr.NewCalculator(customers, ledger.NewMemoryStore(), store,
			mrr.WithCurrentMRRCache(store))

		snap, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityMonthly, false)
		require.NoError(t, err)

		assert.Equal(t, int64(20000), snap.ClubMRR)
		assert.Equal(t, int64(2900), snap.TenantMRR)
		assert.Equal(t, int64(22900), snap.TotalMRR)
		assert.Equal(t, snap.ClubMRR+snap.TenantMRR, snap.TotalMRR)
		assert.Equal(t, 4, snap.CustomerCount)
		assert.Equal(t, int64(22900), store.CurrentMRR(tenantID))
	})

	t.Run("second call without force is a skip", func(t *testing.T) {
		tenantID := uuid.New()
		customers := billing.NewMemoryStore()
		customers.Add(activeCustomer(tenantID, 5000, true))
		store := mrr.NewMemoryStore()
		calc := mrr.NewCalculator(customers, ledger.NewMemoryStore(), store)

		first, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityDaily, false)
		require.NoError(t, err)

		// State changes after the first snapshot must not leak into a
		// non-forced recomputation.
		customers.Add(activeCustomer(tenantID, 7700, true))

		second, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityDaily, false)
		assert.ErrorIs(t, err, mrr.ErrSnapshotExists)
		assert.Equal(t, first.TotalMRR, second.TotalMRR)

		stored, err := store.Get(ctx, tenantID, snapDate, mrr.GranularityDaily)
		require.NoError(t, err)
		assert.Equal(t, first.TotalMRR, stored.TotalMRR)
	})

	t.Run("force recomputes and overwrites", func(t *testing.T) {
		tenantID := uuid.New()
		customers := billing.NewMemoryStore()
		customers.Add(activeCustomer(tenantID, 5000, true))
		store := mrr.NewMemoryStore()
		calc := mrr.NewCalculator(customers, ledger.NewMemoryStore(), store)

		_, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityDaily, false)
		require.NoError(t, err)

		customers.Add(activeCustomer(tenantID, 7700, true))

		snap, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityDaily, true)
		require.NoError(t, err)
		assert.Equal(t, int64(12700), snap.TotalMRR)
	})

	t.Run("growth against previous snapshot with zero guard", func(t *testing.T) {
		tenantID := uuid.New()
		customers := billing.NewMemoryStore()
		customers.Add(activeCustomer(tenantID, 11000, true))
		store := mrr.NewMemoryStore()
		calc := mrr.NewCalculator(customers, ledger.NewMemoryStore(), store)

		// No previous snapshot: growth and rate are 0.
		first, err := calc.Snapshot(ctx, tenantID, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), mrr.GranularityMonthly, false)
		require.NoError(t, err)
		assert.Zero(t, first.Growth)
		assert.Zero(t, first.GrowthRate)

		customers.Add(activeCustomer(tenantID, 2200, true))

		second, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityMonthly, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2200), second.Growth)
		assert.InDelta(t, 20.0, second.GrowthRate, 0.0001)
	})

	t.Run("breakdown from ledger events with positive magnitudes", func(t *testing.T) {
		tenantID := uuid.New()
		customers := billing.NewMemoryStore()
		customers.Add(activeCustomer(tenantID, 5000, true))

		events := ledger.NewMemoryStore()
		mid := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
		require.NoError(t, events.Append(ctx,
			ledger.Event{TenantID: tenantID, CustomerID: uuid.New(), Type: ledger.EventSubscriptionCreated, OccurredAt: mid, MRRChange: 5000},
			ledger.Event{TenantID: tenantID, CustomerID: uuid.New(), Type: ledger.EventPlanUpgraded, OccurredAt: mid, MRRChange: 5000},
			ledger.Event{TenantID: tenantID, CustomerID: uuid.New(), Type: ledger.EventPlanDowngraded, OccurredAt: mid, MRRChange: -2500},
			ledger.Event{TenantID: tenantID, CustomerID: uuid.New(), Type: ledger.EventSubscriptionCanceled, OccurredAt: mid, MRRChange: -5000, Reason: "too_expensive"},
			// Outside (periodStart, date]: must be excluded.
			ledger.Event{TenantID: tenantID, CustomerID: uuid.New(), Type: ledger.EventSubscriptionCreated, OccurredAt: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), MRRChange: 9999},
		))

		calc := mrr.NewCalculator(customers, events, mrr.NewMemoryStore())
		snap, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityMonthly, false)
		require.NoError(t, err)

		assert.Equal(t, int64(5000), snap.NewBusinessMRR)
		assert.Equal(t, int64(5000), snap.ExpansionMRR)
		assert.Equal(t, int64(2500), snap.ContractionMRR)
		assert.Equal(t, int64(5000), snap.ChurnedMRR)
	})

	t.Run("missing plan price falls back to zero without error", func(t *testing.T) {
		tenantID := uuid.New()
		customers := billing.NewMemoryStore()
		broken := activeCustomer(tenantID, 0, true) // billable status, no price
		customers.Add(broken, activeCustomer(tenantID, 5000, true))

		calc := mrr.NewCalculator(customers, ledger.NewMemoryStore(), mrr.NewMemoryStore())
		snap, err := calc.Snapshot(ctx, tenantID, snapDate, mrr.GranularityMonthly, false)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), snap.TotalMRR)
	})

	t.Run("rejects invalid granularity and date", func(t *testing.T) {
		calc := mrr.NewCalculator(billing.NewMemoryStore(), ledger.NewMemoryStore(), mrr.NewMemoryStore())

		_, err := calc.Snapshot(ctx, uuid.New(), snapDate, mrr.Granularity("weekly"), false)
		assert.ErrorIs(t, err, mrr.ErrInvalidGranularity)

		_, err = calc.Snapshot(ctx, uuid.New(), time.Time{}, mrr.GranularityDaily, false)
		assert.ErrorIs(t, err, mrr.ErrInvalidDate)
	})
}

// TestMRRDecompositionIdentity verifies the accounting identity
// total_end = total_start + new_business + expansion - contraction - churned
// on a synthetic ledger where only the four movement categories occur.
func TestMRRDecompositionIdentity(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	type movement struct {
		typ    ledger.EventType
		change int64
	}
	movements := []movement{
		{ledger.EventSubscriptionCreated, 5000},
		{ledger.EventSubscriptionCreated, 2900},
		{ledger.EventPlanUpgraded, 2100},
		{ledger.EventPlanDowngraded, -900},
		{ledger.EventSubscriptionCanceled, -5000},
		{ledger.EventTrialExpired, -2900},
	}

	var startMRR int64 = 40000
	events := ledger.NewMemoryStore()
	at := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	for _, m := range movements {
		require.NoError(t, events.Append(ctx, ledger.Event{
			TenantID:   tenantID,
			CustomerID: uuid.New(),
			Type:       m.typ,
			OccurredAt: at,
			MRRChange:  m.change,
		}))
	}

	// End-state customers reproduce start MRR plus the net ledger movement.
	var net int64
	for _, m := range movements {
		net += m.change
	}
	customers := billing.NewMemoryStore()
	customers.Add(activeCustomer(tenantID, startMRR+net, true))

	calc := mrr.NewCalculator(customers, events, mrr.NewMemoryStore())
	snap, err := calc.Snapshot(ctx, tenantID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), mrr.GranularityMonthly, false)
	require.NoError(t, err)

	endMRR := startMRR + snap.NewBusinessMRR + snap.ExpansionMRR - snap.ContractionMRR - snap.ChurnedMRR
	assert.Equal(t, snap.TotalMRR, endMRR)
}

func TestNormalizeDate(t *testing.T) {
	d := time.Date(2024, 6, 17, 15, 4, 5, 0, time.FixedZone("CET", 3600))

	daily := mrr.NormalizeDate(d, mrr.GranularityDaily)
	assert.Equal(t, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), daily)

	monthly := mrr.NormalizeDate(d, mrr.GranularityMonthly)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), monthly)
}

package cohort_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/cohort"
)

var fixedNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func acquiredIn(tenantID uuid.UUID, month time.Time, ltv int64, endsAt *time.Time) billing.Customer {
	status := billing.StatusActive
	if endsAt != nil {
		status = billing.StatusCanceled
	}
	return billing.Customer{
		TenantID:        tenantID,
		CustomerID:      uuid.New(),
		PlanID:          "club-basic",
		Status:          status,
		Price:           billing.Money{Amount: 5000, Currency: "EUR"},
		Interval:        billing.BillingIntervalMonthly,
		Managed:         true,
		StartedAt:       month.Add(72 * time.Hour),
		EndsAt:          endsAt,
		LifetimeRevenue: ltv,
	}
}

func newAnalyzer(customers *billing.MemoryStore, records cohort.RecordStore) *cohort.Analyzer {
	return cohort.NewAnalyzer(customers, records,
		cohort.WithClock(func() time.Time { return fixedNow }))
}

// TestCohortScenarioB: cohort of 20 customers acquired in January; by March
// (month offset 2) 15 remain active. Expected retention_month_2 = 75.0.
func TestCohortScenarioB(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	january := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	customers := billing.NewMemoryStore()
	for range 15 {
		customers.Add(acquiredIn(tenantID, january, 10000, nil))
	}
	ended := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	for range 5 {
		customers.Add(acquiredIn(tenantID, january, 5000, &ended))
	}

	records := cohort.NewMemoryStore()
	rec, err := newAnalyzer(customers, records).Compute(ctx, tenantID, january)
	require.NoError(t, err)

	assert.Equal(t, 20, rec.CohortSize)
	assert.InDelta(t, 75.0, rec.RetentionMonth2, 0.0001)
	// Offset 1 (February 1): the cancellations landed on Feb 10, so the
	// whole cohort was still active at that boundary.
	assert.InDelta(t, 100.0, rec.RetentionMonth1, 0.0001)
	// Offsets beyond now (March 20) report the 0 sentinel.
	assert.Zero(t, rec.RetentionMonth3)
	assert.Zero(t, rec.RetentionMonth12)

	// 15 x 10000 + 5 x 5000 = 175000; avg over 20 = 8750.
	assert.Equal(t, int64(175000), rec.CumulativeRevenue)
	assert.Equal(t, int64(8750), rec.AvgLTV)

	stored, err := records.Get(ctx, tenantID, january)
	require.NoError(t, err)
	assert.Equal(t, rec.CohortSize, stored.CohortSize)
}

func TestCohortFutureOffsetSentinel(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	thisMonth := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	customers := billing.NewMemoryStore()
	customers.Add(acquiredIn(tenantID, thisMonth, 0, nil))

	rec, err := newAnalyzer(customers, cohort.NewMemoryStore()).Compute(ctx, tenantID, thisMonth)
	require.NoError(t, err)

	for _, offset := range cohort.TrackedOffsets {
		assert.Zero(t, rec.Retention(offset), "offset %d is in the future", offset)
	}
}

func TestCohortRetentionBounds(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	january := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	customers := billing.NewMemoryStore()
	customers.Add(acquiredIn(tenantID, january, 100, nil))

	rec, err := newAnalyzer(customers, cohort.NewMemoryStore()).Compute(ctx, tenantID, january)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, rec.CohortSize, 0)
	for _, offset := range cohort.TrackedOffsets {
		pct := rec.Retention(offset)
		assert.GreaterOrEqual(t, pct, 0.0)
		assert.LessOrEqual(t, pct, 100.0)
	}
}

func TestCohortEmptyMonth(t *testing.T) {
	ctx := context.Background()

	rec, err := newAnalyzer(billing.NewMemoryStore(), cohort.NewMemoryStore()).
		Compute(ctx, uuid.New(), time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, rec.CohortSize)
	assert.Zero(t, rec.AvgLTV)
}

func TestCohortRecomputeOverwrites(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	january := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	customers := billing.NewMemoryStore()
	customers.Add(acquiredIn(tenantID, january, 1000, nil))
	records := cohort.NewMemoryStore()
	analyzer := newAnalyzer(customers, records)

	_, err := analyzer.Compute(ctx, tenantID, january)
	require.NoError(t, err)

	// A late-arriving cohort member must be reflected after recompute.
	customers.Add(acquiredIn(tenantID, january, 3000, nil))
	rec, err := analyzer.Compute(ctx, tenantID, january)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.CohortSize)
	assert.Equal(t, int64(4000), rec.CumulativeRevenue)
	assert.Equal(t, int64(2000), rec.AvgLTV)
}

func TestCohortMonths(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	customers := billing.NewMemoryStore()
	customers.Add(
		acquiredIn(tenantID, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), 0, nil),
		acquiredIn(tenantID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 0, nil),
		acquiredIn(tenantID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 0, nil),
	)

	months, err := newAnalyzer(customers, cohort.NewMemoryStore()).Months(ctx, tenantID)
	require.NoError(t, err)

	require.Len(t, months, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), months[0])
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), months[1])
}

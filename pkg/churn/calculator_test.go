package churn_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/churn"
	"github.com/dmitrymomot/revenuekit/pkg/ledger"
)

var (
	monthStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	midMonth   = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
)

func subscribed(tenantID uuid.UUID, cents int64, endsAt *time.Time) billing.Customer {
	status := billing.StatusActive
	if endsAt != nil {
		status = billing.StatusCanceled
	}
	return billing.Customer{
		TenantID:   tenantID,
		CustomerID: uuid.New(),
		PlanID:     "club-basic",
		Status:     status,
		Price:      billing.Money{Amount: cents, Currency: "EUR"},
		Interval:   billing.BillingIntervalMonthly,
		Managed:    true,
		StartedAt:  time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		EndsAt:     endsAt,
	}
}

// TestChurnScenarioA: 10 active customers at EUR 50/month at month start,
// 2 cancel voluntarily mid-month, 1 upgrades to EUR 100/month.
func TestChurnScenarioA(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	customers := billing.NewMemoryStore()
	events := ledger.NewMemoryStore()

	for range 7 {
		customers.Add(subscribed(tenantID, 5000, nil))
	}
	upgraded := subscribed(tenantID, 10000, nil)
	customers.Add(upgraded)
	require.NoError(t, events.Append(ctx, ledger.Event{
		TenantID: tenantID, CustomerID: upgraded.CustomerID,
		Type: ledger.EventPlanUpgraded, OccurredAt: midMonth, MRRChange: 5000,
	}))

	for range 2 {
		cust := subscribed(tenantID, 5000, &midMonth)
		customers.Add(cust)
		require.NoError(t, events.Append(ctx, ledger.Event{
			TenantID: tenantID, CustomerID: cust.CustomerID,
			Type: ledger.EventSubscriptionCanceled, OccurredAt: midMonth,
			MRRChange: -5000, Reason: "no_longer_needed",
		}))
	}

	calc := churn.NewCalculator(customers, events)
	rec, err := calc.Churn(ctx, tenantID, monthStart)
	require.NoError(t, err)

	assert.Equal(t, 10, rec.CustomersStart)
	assert.Equal(t, 8, rec.CustomersEnd)
	assert.Equal(t, 2, rec.ChurnedCustomers)
	assert.InDelta(t, 20.0, rec.ChurnRate, 0.0001)
	assert.Equal(t, 2, rec.VoluntaryChurn)
	assert.Equal(t, 0, rec.InvoluntaryChurn)
}

func TestChurnZeroCustomers(t *testing.T) {
	calc := churn.NewCalculator(billing.NewMemoryStore(), ledger.NewMemoryStore())

	rec, err := calc.Churn(context.Background(), uuid.New(), monthStart)
	require.NoError(t, err)
	assert.Zero(t, rec.CustomersStart)
	assert.Zero(t, rec.ChurnRate)
}

func TestChurnBoundaryTieBreak(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	// Active both at month start and month end; the mid-month cancel and
	// reactivate transitions are invisible to boundary-state counting.
	customers := billing.NewMemoryStore()
	customers.Add(subscribed(tenantID, 5000, nil))

	events := ledger.NewMemoryStore()
	require.NoError(t, events.Append(ctx,
		ledger.Event{TenantID: tenantID, CustomerID: uuid.New(), Type: ledger.EventSubscriptionCanceled, OccurredAt: midMonth, MRRChange: -5000, Reason: "mistake"},
		ledger.Event{TenantID: tenantID, CustomerID: uuid.New(), Type: ledger.EventSubscriptionCreated, OccurredAt: midMonth.Add(time.Hour), MRRChange: 5000},
	))

	calc := churn.NewCalculator(customers, events)
	rec, err := calc.Churn(ctx, tenantID, monthStart)
	require.NoError(t, err)
	assert.Zero(t, rec.ChurnedCustomers)
	assert.Zero(t, rec.ChurnRate)
}

func TestChurnInvoluntarySplit(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	customers := billing.NewMemoryStore()
	events := ledger.NewMemoryStore()

	voluntary := subscribed(tenantID, 5000, &midMonth)
	involuntary := subscribed(tenantID, 5000, &midMonth)
	customers.Add(voluntary, involuntary, subscribed(tenantID, 5000, nil))

	require.NoError(t, events.Append(ctx,
		ledger.Event{TenantID: tenantID, CustomerID: voluntary.CustomerID, Type: ledger.EventSubscriptionCanceled, OccurredAt: midMonth, MRRChange: -5000, Reason: "switched_provider"},
		ledger.Event{TenantID: tenantID, CustomerID: involuntary.CustomerID, Type: ledger.EventSubscriptionCanceled, OccurredAt: midMonth, MRRChange: -5000, Reason: "payment_failed"},
	))

	calc := churn.NewCalculator(customers, events)
	rec, err := calc.Churn(ctx, tenantID, monthStart)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.ChurnedCustomers)
	assert.Equal(t, 1, rec.VoluntaryChurn)
	assert.Equal(t, 1, rec.InvoluntaryChurn)
}

func TestRevenueChurn(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	customers := billing.NewMemoryStore()
	events := ledger.NewMemoryStore()

	// 4 x EUR 50 at period start, one churns: 25% revenue churn.
	for range 3 {
		customers.Add(subscribed(tenantID, 5000, nil))
	}
	lost := subscribed(tenantID, 5000, &midMonth)
	customers.Add(lost)
	require.NoError(t, events.Append(ctx, ledger.Event{
		TenantID: tenantID, CustomerID: lost.CustomerID,
		Type: ledger.EventSubscriptionCanceled, OccurredAt: midMonth,
		MRRChange: -5000, Reason: "too_expensive",
	}))

	calc := churn.NewCalculator(customers, events)
	pct, err := calc.RevenueChurn(ctx, tenantID, monthStart)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, pct, 0.0001)

	t.Run("zero start MRR yields zero", func(t *testing.T) {
		empty := churn.NewCalculator(billing.NewMemoryStore(), ledger.NewMemoryStore())
		pct, err := empty.RevenueChurn(ctx, uuid.New(), monthStart)
		require.NoError(t, err)
		assert.Zero(t, pct)
	})
}

func TestCheckThreshold(t *testing.T) {
	ctx := context.Background()
	calc := churn.NewCalculator(billing.NewMemoryStore(), ledger.NewMemoryStore())

	rec := &churn.Record{TenantID: uuid.New(), PeriodStart: monthStart, ChurnedCustomers: 2, ChurnRate: 20}
	alert, fired := calc.CheckThreshold(ctx, rec)
	require.True(t, fired)
	assert.Equal(t, rec.TenantID, alert.TenantID)
	assert.Equal(t, 2, alert.ChurnedCustomers)
	assert.InDelta(t, churn.DefaultThreshold, alert.Threshold, 0.0001)

	t.Run("per-tenant override", func(t *testing.T) {
		relaxed := churn.NewCalculator(billing.NewMemoryStore(), ledger.NewMemoryStore(),
			churn.WithThresholdResolver(func(context.Context, uuid.UUID) float64 { return 25 }))
		_, fired := relaxed.CheckThreshold(ctx, rec)
		assert.False(t, fired)
	})
}

func TestIsInvoluntaryReason(t *testing.T) {
	assert.True(t, churn.IsInvoluntaryReason("payment_failed"))
	assert.True(t, churn.IsInvoluntaryReason("card_expired"))
	assert.False(t, churn.IsInvoluntaryReason("too_expensive"))
	assert.False(t, churn.IsInvoluntaryReason(""))
}

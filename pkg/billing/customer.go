package billing

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the analytics engine's read-only view of a customer's current
// subscription state. The record is owned by the billing domain; this engine
// never mutates it.
//
// Invariant: EndsAt is nil iff Status is trialing, active or past_due.
type Customer struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	PlanID     string
	Status     SubscriptionStatus
	Price      Money           // current recurring price for the customer's plan
	Interval   BillingInterval // billing frequency the price is quoted at
	Managed    bool            // managed sub-account (club revenue) vs the tenant's own platform subscription
	StartedAt  time.Time
	EndsAt     *time.Time // nil while the subscription is live

	// LifetimeRevenue is a running total in minor units, monotonically
	// non-decreasing while the subscription is active.
	LifetimeRevenue int64
}

// ActiveAt reports whether the customer was subscribed at instant d.
// A subscription ending exactly at d counts as churned: EndsAt must be
// strictly after d.
func (c Customer) ActiveAt(d time.Time) bool {
	if c.StartedAt.After(d) {
		return false
	}
	return c.EndsAt == nil || c.EndsAt.After(d)
}

// CohortMonth returns the first instant (UTC) of the month the customer was
// acquired in.
func (c Customer) CohortMonth() time.Time {
	t := c.StartedAt.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyAmount normalizes an interval-quoted price to monthly terms in minor
// units. Annual prices divide by 12 with round-half-up on the minor unit: a
// 120000-cent ($1200.00) annual plan contributes exactly 10000 cents per
// month, while a 100000-cent annual plan contributes 8333 cents. The remainder
// is not amortized across the year; each monthly contribution rounds
// independently.
//
// Unknown intervals and negative amounts return 0 so that one malformed plan
// record cannot poison a tenant-wide aggregate; callers log the fallback.
func MonthlyAmount(price Money, interval BillingInterval) int64 {
	if price.Amount <= 0 {
		return 0
	}
	switch interval {
	case BillingIntervalMonthly:
		return price.Amount
	case BillingIntervalAnnual:
		return (price.Amount + 6) / 12
	default:
		return 0
	}
}

// MonthlyContribution returns the customer's MRR contribution in minor units:
// the monthly-normalized price when the status is billable, 0 otherwise.
// The ok result is false when the customer should contribute but its price
// data is unusable (missing price, unknown interval), so callers can log a
// data-quality warning instead of aborting the tenant's aggregate.
func (c Customer) MonthlyContribution() (amount int64, ok bool) {
	if !c.Status.Billable() {
		return 0, true
	}
	if c.Interval == BillingIntervalNone {
		// Free plan: contributes nothing, and that is not a data error.
		return 0, c.Price.Amount <= 0
	}
	amount = MonthlyAmount(c.Price, c.Interval)
	if amount == 0 {
		return 0, false
	}
	return amount, true
}

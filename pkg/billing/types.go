package billing

// Money represents a monetary amount in the smallest currency unit.
// For example, EUR 10.99 would be Amount: 1099, Currency: "EUR".
type Money struct {
	Amount   int64  // Amount in smallest currency unit (cents for EUR/USD)
	Currency string // ISO 4217 currency code
}

// IsZero reports whether the amount is zero regardless of currency.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// BillingInterval represents the billing frequency for a subscription plan.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // Free plans with no billing
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// SubscriptionStatus represents the current state of a customer subscription.
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Billable reports whether the status contributes to recurring revenue.
// Trialing customers count: their plan price is committed revenue unless the
// trial expires, and excluding them would make MRR jump on conversion day.
func (s SubscriptionStatus) Billable() bool {
	return s == StatusActive || s == StatusTrialing
}

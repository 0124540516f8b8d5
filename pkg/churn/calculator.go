package churn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
	"github.com/dmitrymomot/revenuekit/pkg/ledger"
	"github.com/dmitrymomot/revenuekit/pkg/logger"
)

// ThresholdResolver returns the high-churn alert threshold for a tenant.
// The default resolver returns DefaultThreshold for every tenant; deployments
// with per-tenant policies plug in their own.
type ThresholdResolver func(ctx context.Context, tenantID uuid.UUID) float64

// Calculator computes customer-count and revenue churn for trailing months.
type Calculator struct {
	customers billing.CustomerSource
	events    ledger.Reader
	threshold ThresholdResolver
	log       *slog.Logger
}

// Option configures optional calculator behavior.
type Option func(*Calculator)

// WithThresholdResolver overrides the per-tenant high-churn threshold policy.
func WithThresholdResolver(r ThresholdResolver) Option {
	return func(c *Calculator) {
		if r != nil {
			c.threshold = r
		}
	}
}

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(log *slog.Logger) Option {
	return func(c *Calculator) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCalculator creates a churn calculator.
// Panics if required dependencies are nil to fail fast during initialization.
func NewCalculator(customers billing.CustomerSource, events ledger.Reader, opts ...Option) *Calculator {
	if customers == nil {
		panic("churn: CustomerSource is required")
	}
	if events == nil {
		panic("churn: ledger.Reader is required")
	}

	c := &Calculator{
		customers: customers,
		events:    events,
		threshold: func(context.Context, uuid.UUID) float64 { return DefaultThreshold },
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Churn computes customer-count churn for the calendar month containing month.
//
// Counting uses subscription state at the exact period boundaries: a customer
// that churned and reactivated within the month is still active at both
// boundaries and therefore not counted, which is the documented tie-break.
// A tenant with zero customers at period start reports a churn rate of 0.
func (c *Calculator) Churn(ctx context.Context, tenantID uuid.UUID, month time.Time) (*Record, error) {
	if month.IsZero() {
		return nil, ErrInvalidMonth
	}
	start, end := MonthBounds(month)

	customers, err := c.customers.Customers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load customers for tenant %s: %w", tenantID, err)
	}

	rec := &Record{TenantID: tenantID, PeriodStart: start, PeriodEnd: end}

	var churned []billing.Customer
	for _, cust := range customers {
		activeStart := cust.ActiveAt(start)
		activeEnd := cust.ActiveAt(end)
		if activeStart {
			rec.CustomersStart++
		}
		if activeEnd {
			rec.CustomersEnd++
		}
		if activeStart && !activeEnd {
			rec.ChurnedCustomers++
			churned = append(churned, cust)
		}
	}

	if rec.CustomersStart > 0 {
		rec.ChurnRate = float64(rec.ChurnedCustomers) / float64(rec.CustomersStart) * 100
	}

	c.classifyChurn(ctx, rec, churned)
	return rec, nil
}

// classifyChurn splits churned customers into voluntary and involuntary using
// the reason code on their cancellation event within the period. A churned
// customer with no matching event (data gap) counts as voluntary, with a
// warning, so the split always sums to the churn count.
func (c *Calculator) classifyChurn(ctx context.Context, rec *Record, churned []billing.Customer) {
	if len(churned) == 0 {
		return
	}

	events, err := c.events.Range(ctx, rec.TenantID, rec.PeriodStart, rec.PeriodEnd)
	if err != nil {
		c.log.WarnContext(ctx, "ledger unavailable for churn classification, counting all churn as voluntary",
			logger.TenantID(rec.TenantID), logger.Error(err))
		rec.VoluntaryChurn = rec.ChurnedCustomers
		return
	}

	// Latest cancellation event per customer wins.
	involuntaryByEvent := make(map[uuid.UUID]bool)
	for _, e := range events {
		switch e.Type {
		case ledger.EventSubscriptionCanceled:
			involuntaryByEvent[e.CustomerID] = IsInvoluntaryReason(e.Reason)
		case ledger.EventTrialExpired:
			// An expired trial is not a customer decision.
			involuntaryByEvent[e.CustomerID] = true
		}
	}

	for _, cust := range churned {
		inv, seen := involuntaryByEvent[cust.CustomerID]
		if !seen {
			c.log.WarnContext(ctx, "churned customer has no cancellation event in period, counting as voluntary",
				logger.TenantID(rec.TenantID),
				logger.CustomerID(cust.CustomerID))
		}
		if inv {
			rec.InvoluntaryChurn++
		} else {
			rec.VoluntaryChurn++
		}
	}
}

// RevenueChurn computes the percentage of period-start MRR lost to churn in
// the month: churned MRR magnitude from the ledger divided by MRR at period
// start. Returns 0 when the tenant had no MRR at period start.
func (c *Calculator) RevenueChurn(ctx context.Context, tenantID uuid.UUID, month time.Time) (float64, error) {
	if month.IsZero() {
		return 0, ErrInvalidMonth
	}
	start, end := MonthBounds(month)

	customers, err := c.customers.Customers(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("load customers for tenant %s: %w", tenantID, err)
	}

	var startMRR int64
	for _, cust := range customers {
		if !cust.ActiveAt(start) {
			continue
		}
		amount, ok := cust.MonthlyContribution()
		if !ok {
			c.log.WarnContext(ctx, "customer has unusable plan price, contributing 0 to start MRR",
				logger.TenantID(tenantID),
				logger.CustomerID(cust.CustomerID))
		}
		startMRR += amount
	}
	if startMRR == 0 {
		return 0, nil
	}

	events, err := c.events.Range(ctx, tenantID, start, end)
	if err != nil {
		return 0, fmt.Errorf("load ledger events: %w", err)
	}

	var churnedMRR int64
	for _, e := range events {
		if e.Type == ledger.EventSubscriptionCanceled || e.Type == ledger.EventTrialExpired {
			if e.MRRChange < 0 {
				churnedMRR += -e.MRRChange
			}
		}
	}

	return float64(churnedMRR) / float64(startMRR) * 100, nil
}

// CheckThreshold evaluates the tenant-configurable high-churn policy against
// a computed record. Exceeding the threshold raises an alert for downstream
// dispatch; it never blocks.
func (c *Calculator) CheckThreshold(ctx context.Context, rec *Record) (*HighChurnAlert, bool) {
	threshold := c.threshold(ctx, rec.TenantID)
	if rec.ChurnRate <= threshold {
		return nil, false
	}
	return &HighChurnAlert{
		TenantID:         rec.TenantID,
		Period:           rec.PeriodStart,
		ChurnedCustomers: rec.ChurnedCustomers,
		ChurnRate:        rec.ChurnRate,
		Threshold:        threshold,
	}, true
}

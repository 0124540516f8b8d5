package cohort

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/revenuekit/pkg/billing"
)

// Analyzer groups customers by acquisition month and computes retention
// curves, cumulative revenue and average lifetime value per cohort.
type Analyzer struct {
	customers billing.CustomerSource
	records   RecordStore
	log       *slog.Logger
	now       func() time.Time
}

// Option configures optional analyzer behavior.
type Option func(*Analyzer)

// WithLogger sets the analyzer's logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithClock overrides the time source, for tests with fixed time values.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAnalyzer creates a cohort retention analyzer.
// Panics if required dependencies are nil to fail fast during initialization.
func NewAnalyzer(customers billing.CustomerSource, records RecordStore, opts ...Option) *Analyzer {
	if customers == nil {
		panic("cohort: CustomerSource is required")
	}
	if records == nil {
		panic("cohort: RecordStore is required")
	}

	a := &Analyzer{
		customers: customers,
		records:   records,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute recalculates the retention record for one acquisition cohort and
// stores it as a full overwrite. A customer belongs to the cohort when its
// subscription start falls inside cohortMonth; "still active at offset D"
// means started on or before D and not ended strictly after D.
func (a *Analyzer) Compute(ctx context.Context, tenantID uuid.UUID, cohortMonth time.Time) (*Record, error) {
	if cohortMonth.IsZero() {
		return nil, ErrInvalidCohortMonth
	}

	m := cohortMonth.UTC()
	monthStart := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	customers, err := a.customers.Customers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load customers for tenant %s: %w", tenantID, err)
	}

	var members []billing.Customer
	for _, c := range customers {
		if !c.StartedAt.UTC().Before(monthStart) && c.StartedAt.UTC().Before(nextMonth) {
			members = append(members, c)
		}
	}

	rec := &Record{
		TenantID:     tenantID,
		CohortMonth:  monthStart,
		CohortSize:   len(members),
		CalculatedAt: a.now(),
	}

	if rec.CohortSize > 0 {
		now := a.now()
		for _, offset := range TrackedOffsets {
			target := monthStart.AddDate(0, offset, 0)
			if target.After(now) {
				// Future offset: the 0 sentinel, not an error and not null.
				continue
			}
			retained := 0
			for _, c := range members {
				if c.ActiveAt(target) {
					retained++
				}
			}
			rec.setRetention(offset, float64(retained)/float64(rec.CohortSize)*100)
		}

		for _, c := range members {
			rec.CumulativeRevenue += c.LifetimeRevenue
		}
		rec.AvgLTV = rec.CumulativeRevenue / int64(rec.CohortSize)
	}

	if err := a.records.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("upsert cohort record %s/%s: %w", tenantID, monthStart.Format("2006-01"), err)
	}
	return rec, nil
}

// ComputeAll recomputes every cohort of a tenant, most recent first, and
// returns the records. Each cohort is recomputed in full; late-arriving
// cancellations are picked up automatically.
func (a *Analyzer) ComputeAll(ctx context.Context, tenantID uuid.UUID) ([]Record, error) {
	months, err := a.Months(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(months))
	for _, month := range months {
		rec, err := a.Compute(ctx, tenantID, month)
		if err != nil {
			return records, fmt.Errorf("compute cohort %s: %w", month.Format("2006-01"), err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Months lists a tenant's distinct acquisition months, descending.
// It is a query over current state, restartable on each invocation.
func (a *Analyzer) Months(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error) {
	months, err := a.customers.AcquisitionMonths(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list acquisition months for tenant %s: %w", tenantID, err)
	}
	return months, nil
}

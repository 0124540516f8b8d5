package churn

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMonth rejects zero month values at the entry point.
var ErrInvalidMonth = errors.New("churn: month must not be zero")

// Record is the customer-count churn result for one tenant and calendar month.
type Record struct {
	TenantID    uuid.UUID
	PeriodStart time.Time // first instant of the month, UTC
	PeriodEnd   time.Time // first instant of the next month, UTC

	CustomersStart   int
	CustomersEnd     int
	ChurnedCustomers int
	ChurnRate        float64 // percentage in [0,100]; 0 when CustomersStart is 0

	VoluntaryChurn   int
	InvoluntaryChurn int
}

// HighChurnAlert is raised when a tenant's churn rate exceeds the configured
// threshold. It carries everything downstream notification needs; raising it
// never blocks the calculation itself.
type HighChurnAlert struct {
	TenantID         uuid.UUID
	Period           time.Time
	ChurnedCustomers int
	ChurnRate        float64
	Threshold        float64
}

// DefaultThreshold is the churn rate percentage above which a high-churn
// alert fires unless the tenant overrides it.
const DefaultThreshold = 5.0

// involuntaryReasons are the cancellation reason codes produced by the dunning
// pipeline when repeated payment failure terminates a subscription. Everything
// else, including an empty reason, counts as customer-initiated.
var involuntaryReasons = map[string]struct{}{
	"payment_failed":    {},
	"card_expired":      {},
	"dunning_exhausted": {},
}

// IsInvoluntaryReason classifies a cancellation reason code.
func IsInvoluntaryReason(reason string) bool {
	_, ok := involuntaryReasons[reason]
	return ok
}

// MonthBounds normalizes any instant in a month to that month's
// [start, nextMonthStart) boundary pair in UTC.
func MonthBounds(month time.Time) (start, end time.Time) {
	m := month.UTC()
	start = time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

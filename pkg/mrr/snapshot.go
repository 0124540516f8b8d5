package mrr

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Granularity selects the snapshot period length.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// ErrInvalidGranularity rejects unknown granularities at the entry point;
// it is a caller mistake, not a runtime condition.
var ErrInvalidGranularity = errors.New("mrr: invalid granularity, must be daily or monthly")

// Validate returns ErrInvalidGranularity for unknown values.
func (g Granularity) Validate() error {
	switch g {
	case GranularityDaily, GranularityMonthly:
		return nil
	}
	return ErrInvalidGranularity
}

// Snapshot is a materialized point-in-time MRR decomposition for one tenant.
// One row exists per (TenantID, Date, Granularity); recomputation overwrites
// in place.
//
// Invariants: TotalMRR = ClubMRR + TenantMRR; Growth = TotalMRR minus the
// previous snapshot's TotalMRR (0 when no prior snapshot exists);
// ContractionMRR and ChurnedMRR are positive magnitudes.
type Snapshot struct {
	TenantID    uuid.UUID
	Date        time.Time // normalized period end (midnight UTC; first of month for monthly)
	Granularity Granularity

	ClubMRR       int64 // revenue from managed sub-accounts
	TenantMRR     int64 // the tenant's own platform subscription
	TotalMRR      int64
	CustomerCount int

	Growth     int64   // TotalMRR - previous.TotalMRR
	GrowthRate float64 // percentage; 0 when no previous snapshot or previous total is 0

	NewBusinessMRR int64
	ExpansionMRR   int64
	ContractionMRR int64
	ChurnedMRR     int64

	CalculatedAt time.Time
}

// PeriodStart returns the exclusive lower bound of the snapshot's event
// window: one day before Date for daily snapshots, one month for monthly.
// Events in (PeriodStart, Date] feed the breakdown.
func (s *Snapshot) PeriodStart() time.Time {
	if s.Granularity == GranularityMonthly {
		return s.Date.AddDate(0, -1, 0)
	}
	return s.Date.AddDate(0, 0, -1)
}

// NormalizeDate truncates a date to the snapshot key boundary: midnight UTC
// for daily snapshots, the first of the month for monthly ones.
func NormalizeDate(date time.Time, g Granularity) time.Time {
	d := date.UTC()
	if g == GranularityMonthly {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

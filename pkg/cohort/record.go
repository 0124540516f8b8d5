package cohort

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCohortMonth rejects zero cohort month values at the entry point.
var ErrInvalidCohortMonth = errors.New("cohort: cohort month must not be zero")

// TrackedOffsets are the forward month offsets retention is computed at.
var TrackedOffsets = []int{1, 2, 3, 6, 12}

// Record is the materialized retention analysis for one acquisition cohort.
// One row exists per (TenantID, CohortMonth); each recomputation fully
// overwrites the row because lifetime revenue and churn status change
// continuously and incremental patches would drift.
//
// Retention percentages are in [0,100]. Offsets whose target date is still in
// the future report 0: a defined sentinel, so downstream consumers need no
// null handling.
type Record struct {
	TenantID    uuid.UUID
	CohortMonth time.Time // first instant of the acquisition month, UTC

	CohortSize int

	RetentionMonth1  float64
	RetentionMonth2  float64
	RetentionMonth3  float64
	RetentionMonth6  float64
	RetentionMonth12 float64

	// CumulativeRevenue sums the cohort's lifetime revenue as of calculation
	// time (a running total, deliberately not re-derived at the offset date).
	CumulativeRevenue int64
	// AvgLTV is CumulativeRevenue divided by CohortSize, minor units.
	AvgLTV int64

	CalculatedAt time.Time
}

// Retention returns the retention percentage for a tracked offset.
// Unknown offsets return 0.
func (r *Record) Retention(offset int) float64 {
	switch offset {
	case 1:
		return r.RetentionMonth1
	case 2:
		return r.RetentionMonth2
	case 3:
		return r.RetentionMonth3
	case 6:
		return r.RetentionMonth6
	case 12:
		return r.RetentionMonth12
	}
	return 0
}

func (r *Record) setRetention(offset int, pct float64) {
	switch offset {
	case 1:
		r.RetentionMonth1 = pct
	case 2:
		r.RetentionMonth2 = pct
	case 3:
		r.RetentionMonth3 = pct
	case 6:
		r.RetentionMonth6 = pct
	case 12:
		r.RetentionMonth12 = pct
	}
}

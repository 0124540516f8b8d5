// Package mrr computes Monthly Recurring Revenue snapshots: the point-in-time
// total (split into club and tenant components) plus the period-over-period
// decomposition into new business, expansion, contraction and churn derived
// from the event ledger.
//
// Snapshots are keyed by (tenant, date, granularity) and written as atomic
// upserts, so recomputation is idempotent and concurrent recomputations
// converge. Without the force flag an existing snapshot short-circuits as a
// skip (ErrSnapshotExists), which keeps scheduled re-runs cheap.
//
// All monetary values are int64 minor units; annual prices normalize to
// monthly terms through billing.MonthlyAmount, whose rounding rule is pinned
// there.
package mrr

// Package ledger defines the append-only subscription lifecycle event log the
// analytics engine reads from: creations, plan changes, cancellations and
// trial expirations, each tagged with a signed MRR delta in minor units.
//
// Calculators only ever see the Reader interface; Recorder exists for test
// fixtures and backfills. Range queries use a half-open (from, to] window so
// adjacent snapshot periods partition the ledger without double-counting.
package ledger

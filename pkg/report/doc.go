// Package report exposes stored analytics over a read-only JSON API: MRR
// snapshot series, cohort retention tables, and the latest cached health
// report per tenant or platform-wide. All writes happen in the batch
// pipeline; this surface only reads, so dashboards can poll it freely.
package report

// Package batch orchestrates the analytics pipeline across tenants: MRR
// snapshot, churn rates with threshold alerts, cohort refresh, and a health
// evaluation whose alerts fan out through the dispatcher.
//
// Tenants run concurrently up to a configurable bound; stages within a
// tenant stay sequential because later stages read what earlier ones wrote.
// A per-tenant advisory lock dedups overlapping invocations across hosts,
// and one tenant failing never stops the rest. The run summary carries
// per-tenant outcomes, renders as a CLI table, and maps to a process exit
// code (1 on failures, 2 on critical health alerts).
package batch

// Package churn computes customer-count and revenue churn for trailing
// calendar months: active counts at exact period boundaries, the
// voluntary/involuntary split derived from cancellation reason codes on the
// event ledger, and a tenant-configurable high-churn alert policy.
//
// Boundary-state counting is deliberate: a customer who cancels and
// reactivates within the same month is active at both boundaries and does not
// count as churned.
package churn

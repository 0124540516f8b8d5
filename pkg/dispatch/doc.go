// Package dispatch routes health and churn alerts to delivery channels:
// signed webhooks, Postmark email, and an OpenSearch audit trail.
//
// Alerts dispatch at high and critical severity only; medium findings stay
// in the report for dashboards. Channels register with a minimum severity,
// so email can stay critical-only while the webhook and trail see
// everything dispatchable. Fan-out is best effort: a failing channel is
// logged and joined into the returned error without blocking the rest.
package dispatch

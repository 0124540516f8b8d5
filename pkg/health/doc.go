// Package health scores platform and per-tenant health on a 0-100 scale from
// six independently evaluated sub-metrics: payment success rate, churn rate,
// webhook latency, queue failure rate, external payment API reachability, and
// MRR growth.
//
// Each unhealthy sub-metric deducts its configured weight scaled by severity,
// where severity escalates with the relative deviation past the threshold. A
// sub-metric whose data source is unavailable counts as unhealthy and raises
// an alert rather than failing the whole evaluation, because a monitoring
// report with gaps beats no report.
//
// Thresholds and weights live in Config, loadable from YAML or environment,
// with optional per-tenant overrides. The latest report per tenant is cached
// in Redis with a TTL so read paths avoid recomputation.
package health

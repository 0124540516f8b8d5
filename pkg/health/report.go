package health

import (
	"time"

	"github.com/google/uuid"
)

// Metric names one independently computed, independently thresholded
// sub-signal of platform health.
type Metric string

const (
	MetricPaymentSuccessRate Metric = "payment_success_rate"
	MetricChurnRate          Metric = "churn_rate"
	MetricWebhookLatency     Metric = "webhook_latency"
	MetricQueueFailureRate   Metric = "queue_failure_rate"
	MetricPaymentAPI         Metric = "payment_api"
	MetricMRRGrowth          Metric = "mrr_growth"
)

// Severity tiers an alert by how far the measured value deviates from its
// threshold.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status is the overall health tier derived from the score bands.
type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusFair      Status = "fair"
	StatusPoor      Status = "poor"
	StatusCritical  Status = "critical"
)

// statusFor maps a clamped score to its band.
func statusFor(score int) Status {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 75:
		return StatusGood
	case score >= 60:
		return StatusFair
	case score >= 40:
		return StatusPoor
	default:
		return StatusCritical
	}
}

// Alert describes one threshold violation.
type Alert struct {
	Severity  Severity `json:"severity"`
	Metric    Metric   `json:"metric"`
	Message   string   `json:"message"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
}

// MetricResult is the evaluated state of one sub-metric.
type MetricResult struct {
	Metric    Metric  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Healthy   bool    `json:"healthy"`
	// Unavailable marks sub-metrics whose data source could not be reached;
	// they are unhealthy with a descriptive alert rather than aborting the
	// whole report.
	Unavailable bool `json:"unavailable,omitempty"`
}

// Period is the evaluation window for period-scoped sub-metrics.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// MonthPeriod returns the calendar month containing t as a Period.
func MonthPeriod(t time.Time) Period {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{From: start, To: start.AddDate(0, 1, 0)}
}

// Report is a single health evaluation. It is never mutated after
// construction; recomputation produces a fresh report.
type Report struct {
	TenantID    uuid.UUID               `json:"tenant_id"` // uuid.Nil for platform-wide checks
	Period      Period                  `json:"period"`
	Score       int                     `json:"health_score"` // clamped to [0,100]
	Status      Status                  `json:"status"`
	Metrics     map[Metric]MetricResult `json:"metrics"`
	Alerts      []Alert                 `json:"alerts"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// DispatchableAlerts returns the alerts eligible for external dispatch:
// severity high or critical.
func (r *Report) DispatchableAlerts() []Alert {
	var out []Alert
	for _, a := range r.Alerts {
		if a.Severity == SeverityHigh || a.Severity == SeverityCritical {
			out = append(out, a)
		}
	}
	return out
}

// HasCriticalAlerts reports whether any alert is critical.
func (r *Report) HasCriticalAlerts() bool {
	for _, a := range r.Alerts {
		if a.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Failed reports whether the health check should drive a non-zero process
// exit: critical alerts present or the score under the failure floor.
func (r *Report) Failed(floor int) bool {
	return r.HasCriticalAlerts() || r.Score < floor
}
